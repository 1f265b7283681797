// Package domain holds the value types shared by every location resolver:
// coordinates, their provenance, resolution outcomes and the error taxonomy.
package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Source records where a coordinate came from.
type Source string

const (
	SourceMapLink     Source = "map_link"
	SourceGeocoder    Source = "geocoder"
	SourceManualEntry Source = "manual_entry"
	SourceManualMap   Source = "manual_map"
)

// IsManual reports whether the coordinate was written by the user directly.
func (s Source) IsManual() bool {
	return s == SourceManualEntry || s == SourceManualMap
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceMapLink, SourceGeocoder, SourceManualEntry, SourceManualMap:
		return true
	}
	return false
}

// Coordinate is a WGS84 point. Values are only built through NewCoordinate,
// so a Coordinate in hand is always finite and within range.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates lat/lng. NaN, infinities and out-of-range values
// return an *InvalidCoordinateError.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	if !finite(lat) || !finite(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, &InvalidCoordinateError{Latitude: lat, Longitude: lng}
	}
	return Coordinate{Latitude: lat, Longitude: lng}, nil
}

// ParseCoordinate parses two decimal tokens as produced by map links and
// provider payloads.
func ParseCoordinate(latText, lngText string) (Coordinate, error) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return Coordinate{}, &InvalidCoordinateError{Raw: latText + "," + lngText}
	}
	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return Coordinate{}, &InvalidCoordinateError{Raw: latText + "," + lngText}
	}
	return NewCoordinate(lat, lng)
}

// String renders the coordinate the way map products accept it in a search box.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ResolvedCoordinate is the coordinate currently held for a form, with provenance.
type ResolvedCoordinate struct {
	Coordinate
	Source     Source    `json:"source"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// LocationInput is the set of location fields on a pickup point form.
// An empty MapLink means no link was given.
type LocationInput struct {
	RawAddress string `json:"rawAddress"`
	MapLink    string `json:"mapLink"`
	City       string `json:"city"`
}

// Resolution is the outcome of one resolver run. Unresolved is a normal
// value, not an error; Cause says why.
type Resolution struct {
	Found      bool
	Coordinate Coordinate
	Source     Source
	// Locality is filled opportunistically by the geocoder.
	Locality string
	Cause    error
}

// Resolved builds a successful resolution.
func Resolved(coord Coordinate, source Source, locality string) Resolution {
	return Resolution{Found: true, Coordinate: coord, Source: source, Locality: locality}
}

// Unresolved builds a failed resolution carrying cause.
func Unresolved(cause error) Resolution {
	return Resolution{Cause: cause}
}
