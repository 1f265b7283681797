package transport

import (
	"time"

	"github.com/google/uuid"
)

// SavePickupPointRequest is the pickup point form. The coordinate is never
// sent directly; it comes from the form's location session.
type SavePickupPointRequest struct {
	Name              string `json:"name" validate:"required,min=2,max=200"`
	Address           string `json:"address" validate:"required,max=500"`
	City              string `json:"city" validate:"max=120"`
	MapLink           string `json:"mapLink" validate:"max=2048,maplink"`
	ContactPhone      string `json:"contactPhone" validate:"omitempty,max=32"`
	LocationSessionID string `json:"locationSessionId" validate:"required,uuid"`
}

// ListPickupPointsRequest filters the pickup point list.
type ListPickupPointsRequest struct {
	City     string `form:"city" validate:"max=120"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PickupPointResponse is the API shape of a pickup point.
type PickupPointResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	MapLink        string    `json:"mapLink,omitempty"`
	ContactPhone   string    `json:"contactPhone,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	LocationSource string    `json:"locationSource"`
	CreatedBy      uuid.UUID `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PickupPointListResponse is a page of pickup points.
type PickupPointListResponse struct {
	Items    []PickupPointResponse `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}
