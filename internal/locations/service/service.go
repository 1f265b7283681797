// Package service orchestrates location sessions: it wires each form's
// debounce trigger to the resolvers and funnels every result through the
// session reconciler.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pickup_portal_backend/internal/locations/debounce"
	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/internal/locations/mapview"
	"pickup_portal_backend/internal/locations/session"
	"pickup_portal_backend/internal/locations/transport"
	"pickup_portal_backend/platform/apperr"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const manualLocationAnchor = "manual-location"

// LinkResolver resolves a pasted map link.
type LinkResolver interface {
	Resolve(ctx context.Context, link string) domain.Resolution
}

// AddressResolver geocodes free text.
type AddressResolver interface {
	Geocode(ctx context.Context, text string) domain.Resolution
	Qualifies(text string) bool
}

// CapabilitySelector chooses the map surface for a new session.
type CapabilitySelector interface {
	Select(ctx context.Context, locale string) mapview.Capability
	DefaultZoom() int
}

type entry struct {
	owner        uuid.UUID
	session      *session.Session
	trigger      *debounce.Trigger
	capability   mapview.Capability
	subscription *mapview.Subscription
	ctx          context.Context
	cancel       context.CancelFunc

	// inputMu serializes read-modify-write of the form input.
	inputMu sync.Mutex
}

// Service owns the registry of open location sessions.
type Service struct {
	cfg      config.LocationSessionConfig
	links    LinkResolver
	geocoder AddressResolver
	maps     CapabilitySelector
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	inflight sync.WaitGroup
}

// New creates the session service.
func New(cfg config.LocationSessionConfig, links LinkResolver, geocoder AddressResolver, maps CapabilitySelector, log *logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		links:    links,
		geocoder: geocoder,
		maps:     maps,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Open starts a session. A stored coordinate seeds an edit form without
// resolving anything; otherwise any initial input is debounced like an edit.
func (s *Service) Open(ctx context.Context, owner uuid.UUID, req transport.OpenSessionRequest) (transport.SessionResponse, error) {
	id := uuid.NewString()
	e := &entry{
		owner:   owner,
		session: session.New(id, s.now),
	}
	// resolutions outlive the request that triggered them
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))
	e.ctx = context.WithValue(e.ctx, logger.SessionIDKey, id)
	e.trigger = debounce.NewFromConfig(s.cfg, func(field domain.Field, value string) {
		s.dispatch(e, field, value)
	}, s.log)

	input := domain.LocationInput{
		RawAddress: sanitize.Text(req.RawAddress),
		MapLink:    strings.TrimSpace(req.MapLink),
		City:       sanitize.Text(req.City),
	}

	var center *domain.Coordinate
	if req.StoredCoordinate != nil {
		coord, err := domain.NewCoordinate(*req.StoredCoordinate.Latitude, *req.StoredCoordinate.Longitude)
		if err != nil {
			return transport.SessionResponse{}, apperr.Validation(err.Error())
		}
		e.session.Seed(input, coord)
		center = &coord
	}

	e.capability = s.maps.Select(ctx, req.Locale)
	_, e.subscription = e.capability.Render(center, s.maps.DefaultZoom(), true, func(coord domain.Coordinate) error {
		_, err := s.applyManual(e, coord, domain.SourceManualMap)
		return err
	})

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	if req.StoredCoordinate == nil && (input.RawAddress != "" || input.MapLink != "") {
		s.applyInput(e, domain.LocationInput{}, input)
	}

	s.log.WithContext(e.ctx).Info("location session opened",
		"mode", string(e.capability.Mode()),
		"seeded", req.StoredCoordinate != nil)

	return s.response(e), nil
}

// Get returns the current view of a session.
func (s *Service) Get(_ context.Context, owner uuid.UUID, id string) (transport.SessionResponse, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return transport.SessionResponse{}, err
	}
	return s.response(e), nil
}

// UpdateInput applies changed form fields and re-arms the debounce timers
// of the fields that changed.
func (s *Service) UpdateInput(_ context.Context, owner uuid.UUID, id string, req transport.UpdateInputRequest) (transport.SessionResponse, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return transport.SessionResponse{}, err
	}

	e.inputMu.Lock()
	defer e.inputMu.Unlock()

	current := e.session.View().Input
	next := current
	if req.RawAddress != nil {
		next.RawAddress = sanitize.Text(*req.RawAddress)
	}
	if req.MapLink != nil {
		next.MapLink = strings.TrimSpace(*req.MapLink)
	}
	if req.City != nil {
		next.City = sanitize.Text(*req.City)
	}

	if err := s.applyInput(e, current, next); err != nil {
		return transport.SessionResponse{}, err
	}
	return s.response(e), nil
}

func (s *Service) applyInput(e *entry, current, next domain.LocationInput) error {
	if next.RawAddress != current.RawAddress {
		if s.geocoder.Qualifies(next.RawAddress) {
			e.trigger.Change(domain.FieldAddress, next.RawAddress)
		} else {
			e.trigger.Cancel(domain.FieldAddress)
		}
	}
	if next.MapLink != current.MapLink {
		if next.MapLink != "" {
			e.trigger.Change(domain.FieldMapLink, next.MapLink)
		} else {
			e.trigger.Cancel(domain.FieldMapLink)
		}
	}

	if err := e.session.Edit(next, e.trigger.Pending()); err != nil {
		return s.sessionError(err)
	}
	return nil
}

// dispatch runs on the debounce timer goroutine (or the submitting request
// when flushed). It claims a generation and resolves in the background.
func (s *Service) dispatch(e *entry, field domain.Field, value string) {
	gen, err := e.session.Begin(e.trigger.Pending())
	if err != nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		res := s.resolve(e, field, value)
		committed := e.session.Commit(gen, res)

		view := e.session.View()
		s.log.ResolutionEvent(view.ID, string(field), string(view.Phase), gen, committed)
		if !committed {
			s.log.WithContext(e.ctx).Debug("stale resolution dropped",
				"generation", gen, "view", view.String())
		}
	}()
}

// resolve advances link extraction to geocoding when the link yields
// nothing. Everything runs under the generation claimed by dispatch.
func (s *Service) resolve(e *entry, field domain.Field, value string) domain.Resolution {
	if field == domain.FieldAddress {
		return s.geocoder.Geocode(e.ctx, value)
	}

	res := s.links.Resolve(e.ctx, value)
	if res.Found {
		return res
	}

	address := e.session.View().Input.RawAddress
	if !s.geocoder.Qualifies(address) {
		return res
	}
	if fallback := s.geocoder.Geocode(e.ctx, address); fallback.Found {
		return fallback
	}
	return res
}

// ApplyManual stores coordinates typed into the numeric inputs.
func (s *Service) ApplyManual(_ context.Context, owner uuid.UUID, id string, body transport.CoordinateBody) (transport.SessionResponse, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return transport.SessionResponse{}, err
	}

	coord, err := domain.NewCoordinate(*body.Latitude, *body.Longitude)
	if err != nil {
		return transport.SessionResponse{}, apperr.Validation(err.Error())
	}

	if _, err := s.applyManual(e, coord, domain.SourceManualEntry); err != nil {
		return transport.SessionResponse{}, s.sessionError(err)
	}
	return s.response(e), nil
}

// Pick routes a click or drag-end from the interactive map.
func (s *Service) Pick(_ context.Context, owner uuid.UUID, id string, body transport.CoordinateBody) (transport.SessionResponse, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return transport.SessionResponse{}, err
	}

	if e.subscription == nil {
		return transport.SessionResponse{}, apperr.Conflict(mapview.ErrPicksUnsupported.Error())
	}

	if err := e.subscription.Emit(*body.Latitude, *body.Longitude); err != nil {
		if errors.Is(err, domain.ErrNoMatch) {
			return transport.SessionResponse{}, apperr.Validation(err.Error())
		}
		return transport.SessionResponse{}, s.sessionError(err)
	}
	return s.response(e), nil
}

// applyManual cancels pending automated work and commits a manual write.
func (s *Service) applyManual(e *entry, coord domain.Coordinate, source domain.Source) (domain.ResolvedCoordinate, error) {
	e.trigger.Cancel(domain.FieldAddress)
	e.trigger.Cancel(domain.FieldMapLink)

	resolved, err := e.session.ApplyManual(coord, source)
	if err != nil {
		return domain.ResolvedCoordinate{}, err
	}

	s.log.ResolutionEvent(e.session.ID(), string(source),
		string(domain.PhaseManualOverride), e.session.Generation(), true)
	return resolved, nil
}

// Submit is the form-submit read. Pending timers fire immediately, then an
// in-flight resolution gets a bounded wait. Without a coordinate the submit
// is rejected with the manual-entry signal.
func (s *Service) Submit(ctx context.Context, owner uuid.UUID, id string) (domain.ResolvedCoordinate, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return domain.ResolvedCoordinate{}, err
	}

	e.trigger.FlushAll()

	coord, err := e.session.AwaitCoordinate(ctx, s.cfg.GetSubmitWaitTimeout(), s.cfg.GetSubmitPollInterval())
	if err != nil {
		return domain.ResolvedCoordinate{}, s.sessionError(err)
	}
	return coord, nil
}

// Subscribe streams session views until the session closes or cancel is called.
func (s *Service) Subscribe(owner uuid.UUID, id string) (<-chan session.View, func(), error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return nil, nil, err
	}
	views, cancel := e.session.Subscribe()
	return views, cancel, nil
}

// Describe renders a session view for transport.
func (s *Service) Describe(v session.View, capability mapview.Capability) transport.SessionResponse {
	var center *domain.Coordinate
	if v.Coordinate != nil {
		coord := v.Coordinate.Coordinate
		center = &coord
	}

	rendering, sub := capability.Render(center, s.maps.DefaultZoom(), true, nil)
	if sub != nil {
		sub.Close()
	}

	return transport.SessionResponse{
		ID:                  v.ID,
		Input:               v.Input,
		Coordinate:          v.Coordinate,
		Phase:               v.Phase,
		Attempts:            v.Attempts,
		LastError:           v.LastError,
		Generation:          v.Generation,
		ManualEntryRequired: v.ManualEntryRequired,
		UpdatedAt:           v.UpdatedAt,
		Map:                 rendering,
	}
}

// Capability returns the map surface chosen for a session.
func (s *Service) Capability(owner uuid.UUID, id string) (mapview.Capability, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return e.capability, nil
}

// MapCapability describes the surface a new session would get right now.
func (s *Service) MapCapability(ctx context.Context, locale string) mapview.Rendering {
	rendering, sub := s.maps.Select(ctx, locale).Render(nil, s.maps.DefaultZoom(), true, nil)
	if sub != nil {
		sub.Close()
	}
	return rendering
}

// Close discards a session on cancel.
func (s *Service) Close(_ context.Context, owner uuid.UUID, id string) error {
	if _, err := s.lookup(owner, id); err != nil {
		return err
	}
	s.discard(id, "cancelled")
	return nil
}

// Discard drops a session regardless of owner, e.g. after the form was saved.
func (s *Service) Discard(id string) {
	s.discard(id, "submitted")
}

func (s *Service) discard(id, reason string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}

	e.trigger.Stop()
	if e.subscription != nil {
		e.subscription.Close()
	}
	e.session.Close()
	e.cancel()
	s.log.WithContext(e.ctx).Info("location session closed", "reason", reason)
}

// ExpireIdle closes sessions untouched for longer than the session TTL.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.cfg.GetSessionTTL())

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if e.session.UpdatedAt().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.discard(id, "expired")
	}
	return len(expired)
}

// RunJanitor expires idle sessions until ctx is done.
func (s *Service) RunJanitor(ctx context.Context) {
	interval := s.cfg.GetSessionTTL() / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireIdle(); n > 0 {
				s.log.Info("expired idle location sessions", "count", n)
			}
		}
	}
}

// Shutdown closes every session and waits for in-flight resolutions.
func (s *Service) Shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.discard(id, "shutdown")
	}
	s.inflight.Wait()
}

// Wait blocks until in-flight resolutions finish.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func (s *Service) lookup(owner uuid.UUID, id string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok || (e.owner != uuid.Nil && e.owner != owner) {
		return nil, apperr.NotFound("location session not found")
	}
	if e.session.Closed() {
		return nil, apperr.Gone("location session closed")
	}
	return e, nil
}

func (s *Service) response(e *entry) transport.SessionResponse {
	return s.Describe(e.session.View(), e.capability)
}

func (s *Service) sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrManualEntryRequired):
		return apperr.Unprocessable(err.Error()).WithDetails(transport.ManualEntryDetails{
			ManualEntryRequired: true,
			ScrollTo:            manualLocationAnchor,
		})
	case errors.Is(err, session.ErrClosed), errors.Is(err, mapview.ErrSubscriptionClosed):
		return apperr.Gone("location session closed")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable("request cancelled while waiting for location")
	default:
		return err
	}
}
