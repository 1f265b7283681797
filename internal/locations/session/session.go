// Package session holds the single authoritative coordinate of one pickup
// point form and reconciles every automated and manual write into it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pickup_portal_backend/internal/locations/domain"
)

var (
	// ErrManualEntryRequired blocks a submit that has no coordinate.
	ErrManualEntryRequired = errors.New("location unresolved: manual entry required")
	// ErrClosed is returned for writes to a discarded session.
	ErrClosed = errors.New("location session closed")
	// ErrNotManualSource rejects manual writes tagged with an automated source.
	ErrNotManualSource = errors.New("manual writes must use a manual source")
)

// View is the rendered state of a session. Every mutation produces a new
// View and updates the snapshot under the same lock.
type View struct {
	ID                  string                     `json:"id"`
	Input               domain.LocationInput       `json:"input"`
	Coordinate          *domain.ResolvedCoordinate `json:"coordinate,omitempty"`
	Phase               domain.Phase               `json:"phase"`
	Attempts            int                        `json:"attempts"`
	LastError           string                     `json:"lastError,omitempty"`
	Generation          uint64                     `json:"generation"`
	ManualEntryRequired bool                       `json:"manualEntryRequired"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
}

// Session is the reconciler for one form. Resolvers never write the
// coordinate directly; they commit through a generation obtained from Begin.
type Session struct {
	id  string
	now func() time.Time

	mu             sync.Mutex
	input          domain.LocationInput
	coord          *domain.ResolvedCoordinate
	phase          domain.Phase
	debouncing     bool
	attempts       int
	lastErr        string
	generation     uint64
	manualRequired bool
	updatedAt      time.Time
	closed         bool
	subscribers    map[int]chan View
	nextSub        int
}

// New creates an idle session. now may be nil for wall-clock time.
func New(id string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:          id,
		now:         now,
		phase:       domain.PhaseIdle,
		updatedAt:   now(),
		subscribers: make(map[int]chan View),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Seed installs a previously stored coordinate for an edit form.
func (s *Session) Seed(input domain.LocationInput, coord domain.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = input
	s.coord = &domain.ResolvedCoordinate{
		Coordinate: coord,
		Source:     domain.SourceManualEntry,
		ResolvedAt: s.now(),
	}
	s.phase = domain.PhaseResolved
	s.touch()
}

// Edit records new form input. debouncing reports whether a resolver is
// armed for the new input. Qualifying input releases a manual override;
// otherwise the phase settles back to what the current coordinate implies.
func (s *Session) Edit(input domain.LocationInput, debouncing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.input = input
	s.debouncing = debouncing
	if debouncing {
		s.manualRequired = false
	}
	s.touch()
	return nil
}

// Begin starts an automated resolution and returns its generation.
// stillDebouncing is true when another field is still waiting to fire.
func (s *Session) Begin(stillDebouncing bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	s.generation++
	s.phase = domain.PhaseResolving
	s.debouncing = stillDebouncing
	s.attempts++
	s.lastErr = ""
	s.touch()
	return s.generation, nil
}

// Commit applies an automated result if gen is still current and no manual
// write happened since. Returns false when the result was stale.
func (s *Session) Commit(gen uint64, res domain.Resolution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation || s.phase == domain.PhaseManualOverride {
		return false
	}

	if res.Found {
		s.coord = &domain.ResolvedCoordinate{
			Coordinate: res.Coordinate,
			Source:     res.Source,
			ResolvedAt: s.now(),
		}
		s.phase = domain.PhaseResolved
		s.attempts = 0
		s.lastErr = ""
		s.manualRequired = false
		if res.Locality != "" && strings.TrimSpace(s.input.City) == "" {
			s.input.City = res.Locality
		}
	} else {
		s.phase = domain.PhaseFailed
		s.manualRequired = true
		if res.Cause != nil {
			s.lastErr = res.Cause.Error()
		}
	}

	s.touch()
	return true
}

// ApplyManual stores a user-entered coordinate. It always wins: the
// generation is bumped so every in-flight automated result becomes stale.
func (s *Session) ApplyManual(coord domain.Coordinate, source domain.Source) (domain.ResolvedCoordinate, error) {
	if !source.IsManual() {
		return domain.ResolvedCoordinate{}, ErrNotManualSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ResolvedCoordinate{}, ErrClosed
	}

	s.generation++
	s.coord = &domain.ResolvedCoordinate{
		Coordinate: coord,
		Source:     source,
		ResolvedAt: s.now(),
	}
	s.phase = domain.PhaseManualOverride
	s.debouncing = false
	s.attempts = 0
	s.lastErr = ""
	s.manualRequired = false
	s.touch()
	return *s.coord, nil
}

// Snapshot returns the current coordinate, if any.
func (s *Session) Snapshot() (domain.ResolvedCoordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord == nil {
		return domain.ResolvedCoordinate{}, false
	}
	return *s.coord, true
}

// Phase returns the effective phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectivePhase()
}

// View returns the current rendered state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Generation returns the current resolution generation.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// AwaitCoordinate is the submit-time read. While a resolution is in flight
// it polls the snapshot every poll interval, for at most timeout. A missing
// coordinate afterwards, or one left over from input that a still running
// resolution superseded, returns ErrManualEntryRequired.
func (s *Session) AwaitCoordinate(ctx context.Context, timeout, poll time.Duration) (domain.ResolvedCoordinate, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

wait:
	for s.Phase().Pending() {
		select {
		case <-ctx.Done():
			return domain.ResolvedCoordinate{}, ctx.Err()
		case <-deadline.C:
			break wait
		case <-ticker.C:
		}
	}

	return s.settle()
}

// settle returns the coordinate a submit may use and flags the manual
// inputs when there is none.
func (s *Session) settle() (domain.ResolvedCoordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.coord != nil && !s.effectivePhase().Pending() {
		return *s.coord, nil
	}

	s.manualRequired = true
	s.touch()
	return domain.ResolvedCoordinate{}, ErrManualEntryRequired
}

// Subscribe returns a channel receiving the latest View after every
// mutation. Slow readers only ever see the newest View.
func (s *Session) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan View, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	ch <- s.viewLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close discards the session. Later commits are dropped and subscriber
// channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) effectivePhase() domain.Phase {
	if s.debouncing {
		return domain.PhaseDebouncing
	}
	return s.phase
}

func (s *Session) viewLocked() View {
	v := View{
		ID:                  s.id,
		Input:               s.input,
		Phase:               s.effectivePhase(),
		Attempts:            s.attempts,
		LastError:           s.lastErr,
		Generation:          s.generation,
		ManualEntryRequired: s.manualRequired,
		UpdatedAt:           s.updatedAt,
	}
	if s.coord != nil {
		coord := *s.coord
		v.Coordinate = &coord
	}
	return v
}

// touch stamps the mutation and pushes the new View. Caller holds mu.
func (s *Session) touch() {
	s.updatedAt = s.now()
	view := s.viewLocked()
	for _, ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (v View) String() string {
	if v.Coordinate == nil {
		return fmt.Sprintf("%s[%s]", v.ID, v.Phase)
	}
	return fmt.Sprintf("%s[%s %s %s]", v.ID, v.Phase, v.Coordinate.Source, v.Coordinate.Coordinate)
}
