package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PickupPoint is a stored pickup point / point of sale.
type PickupPoint struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	Address        string    `db:"address"`
	City           string    `db:"city"`
	MapLink        string    `db:"map_link"`
	ContactPhone   string    `db:"contact_phone"`
	Latitude       float64   `db:"latitude"`
	Longitude      float64   `db:"longitude"`
	LocationSource string    `db:"location_source"`
	CreatedBy      uuid.UUID `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// SaveParams contains the form data written on create and update.
type SaveParams struct {
	ID             uuid.UUID
	Name           string
	Address        string
	City           string
	MapLink        string
	ContactPhone   string
	Latitude       float64
	Longitude      float64
	LocationSource string
	CreatedBy      uuid.UUID
}

// ListParams defines filters for listing pickup points.
type ListParams struct {
	City   string
	Offset int
	Limit  int
}

// Repository defines pickup point persistence.
type Repository interface {
	Create(ctx context.Context, params SaveParams) (PickupPoint, error)
	Update(ctx context.Context, params SaveParams) (PickupPoint, error)
	GetByID(ctx context.Context, id uuid.UUID) (PickupPoint, error)
	List(ctx context.Context, params ListParams) ([]PickupPoint, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
