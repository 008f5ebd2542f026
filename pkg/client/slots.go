package client

import (
	"context"
	"fmt"
)

// SlotOption is one entry of the time-slot picker.
type SlotOption struct {
	TimeSlot  string
	Disabled  bool // server reported no seats left
	Annotated bool // availability data exists
	Capacity  int
	Available int
	Label     string
}

type SlotPicker struct {
	Loading bool
	Options []SlotOption
}

// AnnotateSlots merges the fixed slot list with availability for one date.
// A slot missing from avail stays selectable and unannotated; the server
// re-checks capacity on submit.
func AnnotateSlots(timeSlots []string, avail []Slot, loading bool) SlotPicker {
	byTime := make(map[string]Slot, len(avail))
	for _, s := range avail {
		byTime[s.TimeSlot] = s
	}

	opts := make([]SlotOption, 0, len(timeSlots))
	for _, ts := range timeSlots {
		opt := SlotOption{TimeSlot: ts, Label: ts}
		if s, ok := byTime[ts]; ok {
			opt.Annotated = true
			opt.Capacity = s.Capacity
			opt.Available = s.Available
			opt.Disabled = s.Available <= 0
			opt.Label = slotLabel(s)
		}
		opts = append(opts, opt)
	}
	return SlotPicker{Loading: loading, Options: opts}
}

func slotLabel(s Slot) string {
	switch {
	case s.Available <= 0:
		return s.TimeSlot + " (Fully booked)"
	case s.Available == 1:
		return s.TimeSlot + " (1 spot left)"
	default:
		return fmt.Sprintf("%s (%d spots left)", s.TimeSlot, s.Available)
	}
}

// Selectable reports whether ts can be picked.
func (p SlotPicker) Selectable(ts string) bool {
	for _, o := range p.Options {
		if o.TimeSlot == ts {
			return !o.Disabled
		}
	}
	return false
}

// LoadSlotPicker fetches availability for date through the cache. Fetch
// failures degrade to an unannotated picker instead of blocking the step.
func (c *Client) LoadSlotPicker(ctx context.Context, timeSlots []string, date string) (SlotPicker, error) {
	avail, err := c.AvailableSlots(ctx, date)
	if err != nil {
		return AnnotateSlots(timeSlots, nil, false), err
	}
	return AnnotateSlots(timeSlots, avail, false), nil
}
