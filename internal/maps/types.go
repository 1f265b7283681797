package maps

import (
	"fmt"
	"time"
)

// LookupRequest is the autocomplete query.
type LookupRequest struct {
	Query string `form:"q" validate:"required,min=3,max=200"`
}

// AddressSuggestion is the normalized data returned to the frontend form.
type AddressSuggestion struct {
	Label       string  `json:"label"`
	Street      string  `json:"street"`
	HouseNumber string  `json:"houseNumber"`
	ZipCode     string  `json:"zipCode"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Candidate is one parsed search hit, best first.
type Candidate struct {
	Lat         float64
	Lon         float64
	DisplayName string
	// Locality is the most specific settlement name the provider returned.
	Locality string
	Road     string
	House    string
	Postcode string
}

// UpstreamError is a non-200 answer from the provider. RetryAfter is parsed
// from the Retry-After header when present.
type UpstreamError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream api error: %d", e.StatusCode)
}

type nominatimAddress struct {
	Road         string `json:"road"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Hamlet       string `json:"hamlet"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
