// Package events defines the domain events modules exchange. The bus
// itself lives in platform/events and is re-exported here so modules
// import a single package.
package events

import (
	"pickup_portal_backend/platform/events"
	"pickup_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-wide bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Pickup Point Domain Events
// =============================================================================

// PickupPointSaved is published after a pickup point form was persisted
// with a coordinate taken from a location session.
type PickupPointSaved struct {
	BaseEvent
	PickupPointID     uuid.UUID `json:"pickupPointId"`
	LocationSessionID string    `json:"locationSessionId"`
	Created           bool      `json:"created"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	LocationSource    string    `json:"locationSource"`
	SavedBy           uuid.UUID `json:"savedBy"`
}

func (e PickupPointSaved) EventName() string { return "pickup_points.point.saved" }

// PickupPointDeleted is published when a pickup point is removed.
type PickupPointDeleted struct {
	BaseEvent
	PickupPointID uuid.UUID `json:"pickupPointId"`
	DeletedBy     uuid.UUID `json:"deletedBy"`
}

func (e PickupPointDeleted) EventName() string { return "pickup_points.point.deleted" }
