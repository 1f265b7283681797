package mapview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
)

func testCatalogue(t *testing.T) Catalogue {
	t.Helper()
	catalogue, err := LoadCatalogue()
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}
	return catalogue
}

func mapConfig(tileURL string, enabled bool) *config.Config {
	return &config.Config{
		InteractiveMapEnabled: enabled,
		MapTileURL:            tileURL,
		MapAttribution:        "© OpenStreetMap contributors",
		StaticMapURL:          "https://staticmap.example.com/staticmap.php",
		ExternalMapURL:        "https://www.google.com/maps",
		MapDefaultZoom:        15,
		MapLocale:             "en",
	}
}

func TestCatalogueLocales(t *testing.T) {
	catalogue := testCatalogue(t)
	if len(catalogue.For("en").Steps) == 0 {
		t.Fatal("expected english steps")
	}
	if catalogue.For("ar-YE").Title == catalogue.For("en").Title {
		t.Fatal("expected arabic instructions for ar-YE")
	}
	if catalogue.For("fr").Title != catalogue.For("en").Title {
		t.Fatal("expected english fallback for unknown locale")
	}
	if _, err := parseCatalogue([]byte("ar:\n  title: x\n")); err == nil {
		t.Fatal("expected catalogue without english to be rejected")
	}
}

func TestSelectInteractiveWhenTilesReachable(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		if r.Method != http.MethodHead || r.URL.Path != "/0/0/0.png" {
			t.Errorf("unexpected probe %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sel := NewSelector(mapConfig(srv.URL+"/{z}/{x}/{y}.png", true), testCatalogue(t), srv.Client(), logger.Discard())

	for range 3 {
		if got := sel.Select(context.Background(), "").Mode(); got != ModeInteractive {
			t.Fatalf("expected interactive, got %s", got)
		}
	}
	if probes.Load() != 1 {
		t.Fatalf("expected cached probe, got %d probes", probes.Load())
	}
}

func TestSelectStaticWhenDisabledOrDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	cases := map[string]*config.Config{
		"disabled":    mapConfig(down.URL+"/{z}/{x}/{y}.png", false),
		"server down": mapConfig(down.URL+"/{z}/{x}/{y}.png", true),
	}
	for name, cfg := range cases {
		sel := NewSelector(cfg, testCatalogue(t), down.Client(), logger.Discard())
		if got := sel.Select(context.Background(), "ar").Mode(); got != ModeStatic {
			t.Fatalf("%s: expected static, got %s", name, got)
		}
	}
}

func TestInteractiveSubscriptionRoutesPicks(t *testing.T) {
	var picked []domain.Coordinate
	capability := Interactive{tileURL: "https://tiles/{z}/{x}/{y}.png"}

	rendering, sub := capability.Render(nil, 15, true, func(c domain.Coordinate) error {
		picked = append(picked, c)
		return nil
	})
	if rendering.Mode != ModeInteractive || !rendering.MarkerDraggable || sub == nil {
		t.Fatalf("unexpected rendering %+v", rendering)
	}

	if err := sub.Emit(15.35, 44.2); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := sub.Emit(120, 44.2); !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("expected invalid pick to be rejected, got %v", err)
	}
	sub.Close()
	if err := sub.Emit(15.35, 44.2); !errors.Is(err, ErrSubscriptionClosed) {
		t.Fatalf("expected closed subscription, got %v", err)
	}
	if len(picked) != 1 || picked[0].Latitude != 15.35 {
		t.Fatalf("unexpected picks %+v", picked)
	}
}

func TestStaticRenderingHasInstructionsAndNoSubscription(t *testing.T) {
	sel := NewSelector(mapConfig("", true), testCatalogue(t), nil, logger.Discard())
	capability := sel.Select(context.Background(), "")

	center, _ := domain.NewCoordinate(15.369445, 44.191006)
	rendering, sub := capability.Render(&center, 15, true, func(domain.Coordinate) error {
		t.Fatal("static surface must not emit picks")
		return nil
	})
	if sub != nil {
		t.Fatal("expected no subscription for static surface")
	}
	if rendering.Instructions == nil || len(rendering.Instructions.Steps) == 0 {
		t.Fatal("expected written instructions")
	}

	preview, err := url.Parse(rendering.PreviewURL)
	if err != nil || preview.Query().Get("center") != "15.369445,44.191006" {
		t.Fatalf("unexpected preview url %q", rendering.PreviewURL)
	}
	if !strings.Contains(rendering.ExternalURL, "q=15.369445%2C44.191006") {
		t.Fatalf("unexpected external url %q", rendering.ExternalURL)
	}
}
