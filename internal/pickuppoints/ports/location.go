// Package ports defines the interfaces the pickup points domain requires
// from other modules. The composition root supplies the implementations.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// ResolvedLocation is the coordinate a pickup point form may persist.
type ResolvedLocation struct {
	Latitude  float64
	Longitude float64
	Source    string
}

// LocationSubmitter runs the submit contract of a form's location session.
// It returns the coordinate to store or an error blocking the save, such as
// the 422 manual-entry signal.
type LocationSubmitter interface {
	SubmitLocation(ctx context.Context, owner uuid.UUID, sessionID string) (ResolvedLocation, error)
}
