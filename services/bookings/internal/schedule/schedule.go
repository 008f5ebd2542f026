// Package schedule holds the fixed daily slots and the pricing catalogue.
package schedule

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/diagnosis/cleanbook/services/bookings/internal/domain"
)

//go:embed default.toml
var defaultTOML string

type Slot struct {
	Time     string `toml:"time" json:"timeSlot"`
	Capacity int    `toml:"capacity" json:"capacity"`
}

type Size struct {
	Label      string `toml:"label" json:"label"`
	PriceCents int64  `toml:"price_cents" json:"priceCents"`
}

type Service struct {
	Name        string `toml:"name" json:"name"`
	Description string `toml:"description" json:"description"`
	Sizes       []Size `toml:"sizes" json:"sizes"`
}

type Schedule struct {
	Slots    []Slot    `toml:"slots" json:"slots"`
	Services []Service `toml:"services" json:"services"`
}

// Load reads path, or the built-in schedule when path is empty.
func Load(path string) (*Schedule, error) {
	var s Schedule
	var err error
	if path == "" {
		_, err = toml.Decode(defaultTOML, &s)
	} else {
		_, err = toml.DecodeFile(path, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func Default() *Schedule {
	s, err := Load("")
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schedule) validate() error {
	if len(s.Slots) == 0 {
		return fmt.Errorf("schedule has no slots")
	}
	seen := make(map[string]bool, len(s.Slots))
	for _, sl := range s.Slots {
		if _, err := time.Parse(domain.SlotLayout, sl.Time); err != nil {
			return fmt.Errorf("slot %q: expected format like \"10:00 AM\"", sl.Time)
		}
		if sl.Capacity < 0 {
			return fmt.Errorf("slot %q: negative capacity", sl.Time)
		}
		if seen[sl.Time] {
			return fmt.Errorf("slot %q listed twice", sl.Time)
		}
		seen[sl.Time] = true
	}
	for _, svc := range s.Services {
		if len(svc.Sizes) == 0 {
			return fmt.Errorf("service %q has no sizes", svc.Name)
		}
	}
	return nil
}

// Slot returns the definition of a fixed slot.
func (s *Schedule) Slot(timeSlot string) (Slot, bool) {
	for _, sl := range s.Slots {
		if sl.Time == timeSlot {
			return sl, true
		}
	}
	return Slot{}, false
}

// Price looks up the base price of a service and property size. Names
// match case-insensitively.
func (s *Schedule) Price(service, size string) (int64, error) {
	for _, svc := range s.Services {
		if !strings.EqualFold(svc.Name, service) {
			continue
		}
		for _, sz := range svc.Sizes {
			if strings.EqualFold(sz.Label, size) {
				return sz.PriceCents, nil
			}
		}
	}
	return 0, domain.ErrUnknownService
}
