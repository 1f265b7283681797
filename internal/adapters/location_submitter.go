package adapters

import (
	"context"

	"github.com/google/uuid"

	locservice "pickup_portal_backend/internal/locations/service"
	"pickup_portal_backend/internal/pickuppoints/ports"
)

// LocationSubmitter adapts the location session service for the pickup
// points domain, satisfying ports.LocationSubmitter.
type LocationSubmitter struct {
	sessions *locservice.Service
}

// NewLocationSubmitter creates a new location submit adapter.
func NewLocationSubmitter(sessions *locservice.Service) *LocationSubmitter {
	return &LocationSubmitter{sessions: sessions}
}

// SubmitLocation runs the session's submit contract and converts the
// coordinate to the pickup points view of it.
func (a *LocationSubmitter) SubmitLocation(ctx context.Context, owner uuid.UUID, sessionID string) (ports.ResolvedLocation, error) {
	coord, err := a.sessions.Submit(ctx, owner, sessionID)
	if err != nil {
		return ports.ResolvedLocation{}, err
	}
	return ports.ResolvedLocation{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Source:    string(coord.Source),
	}, nil
}

var _ ports.LocationSubmitter = (*LocationSubmitter)(nil)
