package transport

import (
	"time"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/internal/locations/mapview"
)

// OpenSessionRequest starts a location session for a create or edit form.
// Edit forms pass the stored coordinate so it can be inspected and kept.
type OpenSessionRequest struct {
	RawAddress       string          `json:"rawAddress" validate:"max=500"`
	MapLink          string          `json:"mapLink" validate:"max=2048,maplink"`
	City             string          `json:"city" validate:"max=120"`
	StoredCoordinate *CoordinateBody `json:"storedCoordinate" validate:"omitempty"`
	Locale           string          `json:"locale" validate:"omitempty,max=16"`
}

// UpdateInputRequest carries the fields that changed. Nil means unchanged;
// an empty string clears the field.
type UpdateInputRequest struct {
	RawAddress *string `json:"rawAddress" validate:"omitempty,max=500"`
	MapLink    *string `json:"mapLink" validate:"omitempty,max=2048,maplink"`
	City       *string `json:"city" validate:"omitempty,max=120"`
}

// CoordinateBody is a numeric coordinate from the manual inputs or the map.
type CoordinateBody struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// SessionResponse is the reactive projection of a session.
type SessionResponse struct {
	ID                  string                     `json:"id"`
	Input               domain.LocationInput       `json:"input"`
	Coordinate          *domain.ResolvedCoordinate `json:"coordinate,omitempty"`
	Phase               domain.Phase               `json:"phase"`
	Attempts            int                        `json:"attempts"`
	LastError           string                     `json:"lastError,omitempty"`
	Generation          uint64                     `json:"generation"`
	ManualEntryRequired bool                       `json:"manualEntryRequired"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
	Map                 mapview.Rendering          `json:"map"`
}

// SubmitResponse is the coordinate a form may persist.
type SubmitResponse struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Source    domain.Source `json:"source"`
}

// ManualEntryDetails accompanies a rejected submit.
type ManualEntryDetails struct {
	ManualEntryRequired bool   `json:"manualEntryRequired"`
	ScrollTo            string `json:"scrollTo"`
}
