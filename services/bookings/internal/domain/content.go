package domain

import "time"

type CmsSection struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key" validate:"required,max=64"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sortOrder"`
	IsActive    bool      `json:"isActive"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CmsContent is one key/value entry of a section. Pages fetch a whole
// section as a key->value map.
type CmsContent struct {
	ID        int64     `json:"id"`
	Section   string    `json:"section"`
	Key       string    `json:"key" validate:"required"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CmsAsset struct {
	ID        int64     `json:"id"`
	Section   string    `json:"section" validate:"required"`
	FileName  string    `json:"fileName" validate:"required"`
	URL       string    `json:"url" validate:"required,url"`
	AltText   string    `json:"altText"`
	CreatedAt time.Time `json:"createdAt"`
}

type FAQ struct {
	ID          int64     `json:"id"`
	Question    string    `json:"question" validate:"required"`
	Answer      string    `json:"answer" validate:"required"`
	Category    string    `json:"category"`
	SortOrder   int       `json:"sortOrder"`
	IsPublished bool      `json:"isPublished"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Review struct {
	ID           int64     `json:"id"`
	BookingID    int64     `json:"bookingId"`
	CustomerName string    `json:"customerName"`
	Rating       int       `json:"rating" validate:"required,gte=1,lte=5"`
	Comment      string    `json:"comment" validate:"max=2000"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
}
