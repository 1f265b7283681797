package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"pickup_portal_backend/internal/locations/domain"
)

func mustCoord(t *testing.T, lat, lng float64) domain.Coordinate {
	t.Helper()
	c, err := domain.NewCoordinate(lat, lng)
	if err != nil {
		t.Fatalf("coordinate: %v", err)
	}
	return c
}

func found(t *testing.T, lat, lng float64, source domain.Source) domain.Resolution {
	return domain.Resolved(mustCoord(t, lat, lng), source, "")
}

func TestStaleResultDoesNotOverwriteNewer(t *testing.T) {
	s := New("s1", nil)

	older, _ := s.Begin(false)
	newer, _ := s.Begin(false)

	if !s.Commit(newer, found(t, 15.1, 44.1, domain.SourceGeocoder)) {
		t.Fatal("expected newer result to commit")
	}
	if s.Commit(older, found(t, 12.8, 45.0, domain.SourceGeocoder)) {
		t.Fatal("expected stale result to be dropped")
	}

	coord, ok := s.Snapshot()
	if !ok || coord.Latitude != 15.1 {
		t.Fatalf("expected newer coordinate to survive, got %+v", coord)
	}
}

func TestStaleResultArrivingFirstIsStillDropped(t *testing.T) {
	s := New("s1", nil)

	older, _ := s.Begin(false)
	newer, _ := s.Begin(false)

	if s.Commit(older, found(t, 12.8, 45.0, domain.SourceGeocoder)) {
		t.Fatal("expected older dispatch to be stale once a newer one started")
	}
	if s.Phase() != domain.PhaseResolving {
		t.Fatalf("expected newer dispatch still resolving, got %s", s.Phase())
	}
	s.Commit(newer, found(t, 15.1, 44.1, domain.SourceGeocoder))
	if coord, _ := s.Snapshot(); coord.Latitude != 15.1 {
		t.Fatalf("unexpected coordinate %+v", coord)
	}
}

func TestManualPickOverridesAutomatedInEitherOrder(t *testing.T) {
	t.Run("automated arrives after pick", func(t *testing.T) {
		s := New("s1", nil)
		gen, _ := s.Begin(false)
		if _, err := s.ApplyManual(mustCoord(t, 13.0, 44.0), domain.SourceManualMap); err != nil {
			t.Fatalf("manual: %v", err)
		}
		if s.Commit(gen, found(t, 15.0, 45.0, domain.SourceGeocoder)) {
			t.Fatal("automated result must not override a manual pick")
		}
		coord, _ := s.Snapshot()
		if coord.Source != domain.SourceManualMap || coord.Latitude != 13.0 {
			t.Fatalf("expected manual coordinate, got %+v", coord)
		}
		if s.Phase() != domain.PhaseManualOverride {
			t.Fatalf("expected manual override phase, got %s", s.Phase())
		}
	})

	t.Run("automated arrives before pick", func(t *testing.T) {
		s := New("s1", nil)
		gen, _ := s.Begin(false)
		s.Commit(gen, found(t, 15.0, 45.0, domain.SourceGeocoder))
		if _, err := s.ApplyManual(mustCoord(t, 13.0, 44.0), domain.SourceManualMap); err != nil {
			t.Fatalf("manual: %v", err)
		}
		coord, _ := s.Snapshot()
		if coord.Source != domain.SourceManualMap {
			t.Fatalf("expected manual coordinate, got %+v", coord)
		}
	})

	t.Run("later automated dispatch without typing is rejected", func(t *testing.T) {
		s := New("s1", nil)
		s.ApplyManual(mustCoord(t, 13.0, 44.0), domain.SourceManualEntry)
		gen := s.Generation()
		if s.Commit(gen, found(t, 15.0, 45.0, domain.SourceMapLink)) {
			t.Fatal("manual override must hold until new dispatch")
		}
	})
}

func TestTypingAfterManualOverrideRestartsCycle(t *testing.T) {
	s := New("s1", nil)
	s.ApplyManual(mustCoord(t, 13.0, 44.0), domain.SourceManualEntry)

	_ = s.Edit(domain.LocationInput{RawAddress: "Hadda Street"}, true)
	if s.Phase() != domain.PhaseDebouncing {
		t.Fatalf("expected debouncing, got %s", s.Phase())
	}

	gen, _ := s.Begin(false)
	if !s.Commit(gen, found(t, 15.3, 44.2, domain.SourceGeocoder)) {
		t.Fatal("expected commit after user resumed typing")
	}
	if s.Phase() != domain.PhaseResolved {
		t.Fatalf("expected resolved, got %s", s.Phase())
	}
}

func TestNonQualifyingEditRestoresRestingPhase(t *testing.T) {
	s := New("s1", nil)
	s.ApplyManual(mustCoord(t, 13.0, 44.0), domain.SourceManualEntry)

	_ = s.Edit(domain.LocationInput{RawAddress: "Hadda Street"}, true)
	_ = s.Edit(domain.LocationInput{RawAddress: "Ha"}, false)

	if s.Phase() != domain.PhaseManualOverride {
		t.Fatalf("expected manual override to be restored, got %s", s.Phase())
	}
}

func TestFailedResolutionRequiresManualEntry(t *testing.T) {
	s := New("s1", nil)
	gen, _ := s.Begin(false)
	s.Commit(gen, domain.Unresolved(&domain.NoMatchError{Input: "x"}))

	v := s.View()
	if v.Phase != domain.PhaseFailed || !v.ManualEntryRequired || v.LastError == "" {
		t.Fatalf("unexpected view %+v", v)
	}

	if _, err := s.ApplyManual(mustCoord(t, 14.0, 45.0), domain.SourceManualEntry); err != nil {
		t.Fatalf("manual: %v", err)
	}
	v = s.View()
	if v.Phase != domain.PhaseManualOverride || v.ManualEntryRequired {
		t.Fatalf("unexpected view after manual entry %+v", v)
	}
}

func TestLocalityNeverOverwritesUserCity(t *testing.T) {
	s := New("s1", nil)
	_ = s.Edit(domain.LocationInput{RawAddress: "Hadda Street", City: "Aden"}, true)
	gen, _ := s.Begin(false)
	s.Commit(gen, domain.Resolved(mustCoord(t, 15.3, 44.2), domain.SourceGeocoder, "Sana'a"))
	if city := s.View().Input.City; city != "Aden" {
		t.Fatalf("user city overwritten: %q", city)
	}

	s2 := New("s2", nil)
	_ = s2.Edit(domain.LocationInput{RawAddress: "Hadda Street"}, true)
	gen, _ = s2.Begin(false)
	s2.Commit(gen, domain.Resolved(mustCoord(t, 15.3, 44.2), domain.SourceGeocoder, "Sana'a"))
	if city := s2.View().Input.City; city != "Sana'a" {
		t.Fatalf("expected locality prefill, got %q", city)
	}
}

func TestApplyManualRejectsAutomatedSource(t *testing.T) {
	s := New("s1", nil)
	if _, err := s.ApplyManual(mustCoord(t, 1, 1), domain.SourceGeocoder); !errors.Is(err, ErrNotManualSource) {
		t.Fatalf("expected ErrNotManualSource, got %v", err)
	}
}

func TestAwaitCoordinateWaitsForInFlightResolution(t *testing.T) {
	s := New("s1", nil)
	gen, _ := s.Begin(false)

	go func() {
		time.Sleep(30 * time.Millisecond)
		s.Commit(gen, found(t, 15.1, 44.9, domain.SourceMapLink))
	}()

	coord, err := s.AwaitCoordinate(context.Background(), time.Second, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if coord.Latitude != 15.1 || coord.Source != domain.SourceMapLink {
		t.Fatalf("unexpected coordinate %+v", coord)
	}
}

func TestAwaitCoordinateTimesOutToManualEntry(t *testing.T) {
	s := New("s1", nil)
	_, _ = s.Begin(false)

	start := time.Now()
	_, err := s.AwaitCoordinate(context.Background(), 40*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, ErrManualEntryRequired) {
		t.Fatalf("expected manual entry required, got %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Fatal("returned before the bounded wait elapsed")
	}
	if !s.View().ManualEntryRequired {
		t.Fatal("expected manual fallback flagged in view")
	}
}

func TestAwaitCoordinateRejectsSupersededCoordinate(t *testing.T) {
	s := New("s1", nil)
	gen, _ := s.Begin(false)
	s.Commit(gen, found(t, 15.1, 44.9, domain.SourceGeocoder))

	if err := s.Edit(domain.LocationInput{RawAddress: "Hadda Street, Sana'a"}, true); err != nil {
		t.Fatalf("edit: %v", err)
	}
	_, _ = s.Begin(false)

	coord, err := s.AwaitCoordinate(context.Background(), 50*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrManualEntryRequired) {
		t.Fatalf("expected manual entry required, got %+v %v", coord, err)
	}
	if !s.View().ManualEntryRequired {
		t.Fatal("expected manual fallback flagged in view")
	}
}

func TestAwaitCoordinateUsesExistingCoordinateImmediately(t *testing.T) {
	s := New("s1", nil)
	s.ApplyManual(mustCoord(t, 13.5, 44.0), domain.SourceManualEntry)

	coord, err := s.AwaitCoordinate(context.Background(), time.Hour, time.Hour)
	if err != nil || coord.Source != domain.SourceManualEntry {
		t.Fatalf("expected immediate manual coordinate, got %+v %v", coord, err)
	}
}

func TestSubscribeReceivesLatestView(t *testing.T) {
	s := New("s1", nil)
	views, cancel := s.Subscribe()
	defer cancel()

	initial := <-views
	if initial.Phase != domain.PhaseIdle {
		t.Fatalf("expected initial idle view, got %s", initial.Phase)
	}

	gen, _ := s.Begin(false)
	s.Commit(gen, found(t, 15.1, 44.9, domain.SourceGeocoder))

	latest := <-views
	if latest.Phase != domain.PhaseResolved || latest.Coordinate == nil {
		t.Fatalf("expected latest resolved view, got %+v", latest)
	}

	s.Close()
	if _, ok := <-views; ok {
		t.Fatal("expected channel closed on session close")
	}
}

func TestClosedSessionRejectsWrites(t *testing.T) {
	s := New("s1", nil)
	gen, _ := s.Begin(false)
	s.Close()

	if s.Commit(gen, found(t, 1, 1, domain.SourceGeocoder)) {
		t.Fatal("expected commit on closed session to be dropped")
	}
	if _, err := s.Begin(false); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Edit(domain.LocationInput{}, false); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
