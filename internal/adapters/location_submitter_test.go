package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"pickup_portal_backend/internal/events"
	"pickup_portal_backend/internal/locations"
	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/internal/locations/transport"
	"pickup_portal_backend/internal/maps"
	"pickup_portal_backend/platform/apperr"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/validator"
)

type noResults struct{}

func (noResults) Search(context.Context, string, int) ([]maps.Candidate, error) {
	return nil, nil
}

func newLocationModule(t *testing.T) *locations.Module {
	t.Helper()
	cfg := &config.Config{
		GeocoderMinQueryLength: 5,
		GeocoderMinInterval:    time.Millisecond,
		ShortLinkHosts:         []string{"goo.gl"},
		ShortLinkTimeout:       time.Second,
		AddressDebounce:        time.Hour,
		MapLinkDebounce:        time.Hour,
		SubmitWaitTimeout:      50 * time.Millisecond,
		SubmitPollInterval:     5 * time.Millisecond,
		SessionTTL:             time.Minute,
		MapDefaultZoom:         15,
	}
	module, err := locations.NewModule(cfg, noResults{}, nil, validator.New(), logger.Discard())
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	t.Cleanup(module.Shutdown)
	return module
}

func TestSubmitLocationReturnsManualCoordinate(t *testing.T) {
	module := newLocationModule(t)
	sessions := module.Service()
	owner := uuid.New()

	opened, err := sessions.Open(context.Background(), owner, transport.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	lat, lng := 15.3694, 44.191
	if _, err := sessions.ApplyManual(context.Background(), owner, opened.ID, transport.CoordinateBody{Latitude: &lat, Longitude: &lng}); err != nil {
		t.Fatalf("manual: %v", err)
	}

	got, err := NewLocationSubmitter(sessions).SubmitLocation(context.Background(), owner, opened.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Latitude != lat || got.Longitude != lng || got.Source != string(domain.SourceManualEntry) {
		t.Fatalf("got %+v", got)
	}
}

func TestSubmitLocationBlocksUnresolvedForm(t *testing.T) {
	module := newLocationModule(t)
	sessions := module.Service()
	owner := uuid.New()

	opened, err := sessions.Open(context.Background(), owner, transport.OpenSessionRequest{RawAddress: "Unknown Alley 4"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err = NewLocationSubmitter(sessions).SubmitLocation(context.Background(), owner, opened.ID)
	if !apperr.Is(err, apperr.KindUnprocessable) {
		t.Fatalf("err = %v, want unprocessable", err)
	}
}

func TestSavedEventDiscardsSession(t *testing.T) {
	module := newLocationModule(t)
	bus := events.NewInMemoryBus(logger.Discard())
	module.RegisterHandlers(bus)

	owner := uuid.New()
	opened, err := module.Service().Open(context.Background(), owner, transport.OpenSessionRequest{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	bus.Publish(context.Background(), events.PickupPointSaved{
		BaseEvent:         events.NewBaseEvent(),
		PickupPointID:     uuid.New(),
		LocationSessionID: opened.ID,
	})
	bus.Wait()

	if _, err := module.Service().Get(context.Background(), owner, opened.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want session discarded", err)
	}
}
