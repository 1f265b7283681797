package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pickup_portal_backend/platform/apperr"
)

const pickupPointNotFoundMessage = "pickup point not found"

const pickupPointColumns = `id, name, address, city, map_link, contact_phone,
		latitude, longitude, location_source, created_by, created_at, updated_at`

// Repo implements the pickup point repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pickup point repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a pickup point.
func (r *Repo) Create(ctx context.Context, params SaveParams) (PickupPoint, error) {
	query := `
		INSERT INTO pickup_points (id, name, address, city, map_link, contact_phone,
			latitude, longitude, location_source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + pickupPointColumns

	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}

	point, err := scanPickupPoint(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Address, params.City, params.MapLink, params.ContactPhone,
		params.Latitude, params.Longitude, params.LocationSource, params.CreatedBy,
	))
	if err != nil {
		return PickupPoint{}, fmt.Errorf("create pickup point: %w", err)
	}
	return point, nil
}

// Update replaces the form fields of a pickup point.
func (r *Repo) Update(ctx context.Context, params SaveParams) (PickupPoint, error) {
	query := `
		UPDATE pickup_points
		SET name = $2,
			address = $3,
			city = $4,
			map_link = $5,
			contact_phone = $6,
			latitude = $7,
			longitude = $8,
			location_source = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + pickupPointColumns

	point, err := scanPickupPoint(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Address, params.City, params.MapLink, params.ContactPhone,
		params.Latitude, params.Longitude, params.LocationSource,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PickupPoint{}, apperr.NotFound(pickupPointNotFoundMessage)
		}
		return PickupPoint{}, fmt.Errorf("update pickup point: %w", err)
	}
	return point, nil
}

// GetByID retrieves a pickup point by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (PickupPoint, error) {
	query := `SELECT ` + pickupPointColumns + ` FROM pickup_points WHERE id = $1`

	point, err := scanPickupPoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PickupPoint{}, apperr.NotFound(pickupPointNotFoundMessage)
		}
		return PickupPoint{}, fmt.Errorf("get pickup point by id: %w", err)
	}
	return point, nil
}

// List returns pickup points ordered by name, optionally filtered by city.
func (r *Repo) List(ctx context.Context, params ListParams) ([]PickupPoint, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pickup_points WHERE ($1 = '' OR city ILIKE $1)`, params.City,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pickup points: %w", err)
	}

	query := `
		SELECT ` + pickupPointColumns + `
		FROM pickup_points
		WHERE ($1 = '' OR city ILIKE $1)
		ORDER BY name ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, params.City, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list pickup points: %w", err)
	}
	defer rows.Close()

	points := make([]PickupPoint, 0)
	for rows.Next() {
		point, err := scanPickupPoint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pickup point: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pickup points: %w", err)
	}

	return points, total, nil
}

// Delete removes a pickup point.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pickup_points WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pickup point: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(pickupPointNotFoundMessage)
	}
	return nil
}

func scanPickupPoint(row pgx.Row) (PickupPoint, error) {
	var p PickupPoint
	err := row.Scan(
		&p.ID, &p.Name, &p.Address, &p.City, &p.MapLink, &p.ContactPhone,
		&p.Latitude, &p.Longitude, &p.LocationSource, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
