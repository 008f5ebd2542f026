package domain

import "time"

type Customer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	ZipCode       string    `json:"zipCode"`
	ReferralCode  string    `json:"referralCode"`
	Notes         string    `json:"notes"`
	TotalBookings int       `json:"totalBookings"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CustomerPatch struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	ZipCode *string `json:"zipCode,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type Employee struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone"`
	Position    string    `json:"position"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
