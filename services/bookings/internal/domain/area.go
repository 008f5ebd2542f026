package domain

import (
	"slices"
	"time"
)

type ServiceArea struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required"`
	ZipCodes  []string  `json:"zipCodes" validate:"required,min=1,dive,len=5,numeric"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *ServiceArea) Serves(zip string) bool {
	return a.IsActive && slices.Contains(a.ZipCodes, zip)
}

type ZipCheck struct {
	ZipCode  string `json:"zipCode"`
	Served   bool   `json:"served"`
	AreaName string `json:"areaName,omitempty"`
}
