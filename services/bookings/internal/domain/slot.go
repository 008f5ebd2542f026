package domain

import "time"

// SlotAvailability is the remaining capacity of one fixed time slot on a date.
type SlotAvailability struct {
	TimeSlot  string `json:"timeSlot"`
	Capacity  int    `json:"capacity"`
	Available int    `json:"available"`
}

// CapacityOverride replaces a slot's default capacity on one date.
type CapacityOverride struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot  string    `json:"timeSlot" validate:"required"`
	Capacity  int       `json:"capacity" validate:"gte=0"`
	CreatedAt time.Time `json:"createdAt"`
}

// Available never goes below zero, even when a slot was overbooked before
// its capacity was lowered.
func Available(capacity, booked int) int {
	return max(capacity-booked, 0)
}
