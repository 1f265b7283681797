package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"pickup_portal_backend/internal/events"
	"pickup_portal_backend/internal/pickuppoints/ports"
	"pickup_portal_backend/internal/pickuppoints/repository"
	"pickup_portal_backend/internal/pickuppoints/transport"
	"pickup_portal_backend/platform/apperr"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/phone"
	"pickup_portal_backend/platform/sanitize"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service implements pickup point business logic.
type Service struct {
	repo      repository.Repository
	locations ports.LocationSubmitter
	bus       events.Bus
	region    string
	log       *logger.Logger
}

// New creates a new pickup point service.
func New(repo repository.Repository, locations ports.LocationSubmitter, bus events.Bus, cfg config.PhoneConfig, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		locations: locations,
		bus:       bus,
		region:    cfg.GetDefaultPhoneRegion(),
		log:       log,
	}
}

// Create persists a new pickup point once its location session yields a
// coordinate.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req transport.SavePickupPointRequest) (transport.PickupPointResponse, error) {
	params, err := s.saveParams(ctx, actorID, req)
	if err != nil {
		return transport.PickupPointResponse{}, err
	}
	params.CreatedBy = actorID

	point, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.PickupPointResponse{}, s.storeError("create pickup point", err)
	}

	s.publishSaved(ctx, point, req.LocationSessionID, actorID, true)
	return toResponse(point), nil
}

// Update replaces a pickup point's form fields and coordinate.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, req transport.SavePickupPointRequest) (transport.PickupPointResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return transport.PickupPointResponse{}, err
	}

	params, err := s.saveParams(ctx, actorID, req)
	if err != nil {
		return transport.PickupPointResponse{}, err
	}
	params.ID = id

	point, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.PickupPointResponse{}, s.storeError("update pickup point", err)
	}

	s.publishSaved(ctx, point, req.LocationSessionID, actorID, false)
	return toResponse(point), nil
}

// GetByID returns a single pickup point.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.PickupPointResponse, error) {
	point, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PickupPointResponse{}, err
	}
	return toResponse(point), nil
}

// List returns a page of pickup points.
func (s *Service) List(ctx context.Context, req transport.ListPickupPointsRequest) (transport.PickupPointListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	points, total, err := s.repo.List(ctx, repository.ListParams{
		City:   sanitize.Text(req.City),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		return transport.PickupPointListResponse{}, s.storeError("list pickup points", err)
	}

	items := make([]transport.PickupPointResponse, 0, len(points))
	for _, p := range points {
		items = append(items, toResponse(p))
	}
	return transport.PickupPointListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// Delete removes a pickup point.
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.PickupPointDeleted{
		BaseEvent:     events.NewBaseEvent(),
		PickupPointID: id,
		DeletedBy:     actorID,
	})
	return nil
}

// saveParams sanitizes the form and runs the location submit contract last,
// so a form with invalid fields never consumes the session.
func (s *Service) saveParams(ctx context.Context, actorID uuid.UUID, req transport.SavePickupPointRequest) (repository.SaveParams, error) {
	name := sanitize.Text(req.Name)
	address := sanitize.Text(req.Address)
	if name == "" || address == "" {
		return repository.SaveParams{}, apperr.Validation("name and address are required")
	}

	contactPhone := strings.TrimSpace(req.ContactPhone)
	if contactPhone != "" {
		if !phone.IsValid(contactPhone, s.region) {
			return repository.SaveParams{}, apperr.Validation("invalid contact phone")
		}
		contactPhone = phone.NormalizeE164(contactPhone, s.region)
	}

	location, err := s.locations.SubmitLocation(ctx, actorID, req.LocationSessionID)
	if err != nil {
		return repository.SaveParams{}, err
	}

	return repository.SaveParams{
		Name:           name,
		Address:        address,
		City:           sanitize.Text(req.City),
		MapLink:        strings.TrimSpace(req.MapLink),
		ContactPhone:   contactPhone,
		Latitude:       location.Latitude,
		Longitude:      location.Longitude,
		LocationSource: location.Source,
	}, nil
}

// storeError logs repository failures that are not already domain errors.
func (s *Service) storeError(operation string, err error) error {
	if apperr.GetKind(err) == apperr.KindUnknown {
		s.log.DatabaseError(operation, err)
	}
	return err
}

func (s *Service) publishSaved(ctx context.Context, point repository.PickupPoint, sessionID string, actorID uuid.UUID, created bool) {
	s.bus.Publish(ctx, events.PickupPointSaved{
		BaseEvent:         events.NewBaseEvent(),
		PickupPointID:     point.ID,
		LocationSessionID: sessionID,
		Created:           created,
		Latitude:          point.Latitude,
		Longitude:         point.Longitude,
		LocationSource:    point.LocationSource,
		SavedBy:           actorID,
	})

	s.log.WithContext(ctx).Info("pickup point saved",
		"pickupPointId", point.ID,
		"created", created,
		"locationSource", point.LocationSource)
}

func toResponse(p repository.PickupPoint) transport.PickupPointResponse {
	return transport.PickupPointResponse{
		ID:             p.ID,
		Name:           p.Name,
		Address:        p.Address,
		City:           p.City,
		MapLink:        p.MapLink,
		ContactPhone:   p.ContactPhone,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		LocationSource: p.LocationSource,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
