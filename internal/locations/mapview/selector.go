package mapview

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
)

const (
	probeTimeout = 2 * time.Second
	probeTTL     = 5 * time.Minute
)

// Selector picks the capability for new sessions. The tile server probe is
// cached so opening a form does not pay for it every time.
type Selector struct {
	enabled     bool
	tileURL     string
	attribution string
	staticURL   string
	externalURL string
	zoom        int
	locale      string
	catalogue   Catalogue
	client      *http.Client
	log         *logger.Logger
	now         func() time.Time

	mu        sync.Mutex
	available bool
	probedAt  time.Time
}

// NewSelector builds a selector. httpClient may be nil.
func NewSelector(cfg config.MapViewConfig, catalogue Catalogue, httpClient *http.Client, log *logger.Logger) *Selector {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: probeTimeout}
	}
	return &Selector{
		enabled:     cfg.IsInteractiveMapEnabled(),
		tileURL:     cfg.GetMapTileURL(),
		attribution: cfg.GetMapAttribution(),
		staticURL:   cfg.GetStaticMapURL(),
		externalURL: cfg.GetExternalMapURL(),
		zoom:        cfg.GetMapDefaultZoom(),
		locale:      cfg.GetMapLocale(),
		catalogue:   catalogue,
		client:      httpClient,
		log:         log,
		now:         time.Now,
	}
}

// DefaultZoom returns the configured initial zoom.
func (s *Selector) DefaultZoom() int {
	return s.zoom
}

// Select returns the interactive map when it is enabled and reachable,
// the static fallback otherwise. locale may be empty.
func (s *Selector) Select(ctx context.Context, locale string) Capability {
	if s.enabled && s.tileURL != "" && s.interactiveAvailable(ctx) {
		return Interactive{tileURL: s.tileURL, attribution: s.attribution}
	}
	if locale == "" {
		locale = s.locale
	}
	return Static{
		previewURL:   s.staticURL,
		externalURL:  s.externalURL,
		instructions: s.catalogue.For(locale),
	}
}

func (s *Selector) interactiveAvailable(ctx context.Context) bool {
	s.mu.Lock()
	if !s.probedAt.IsZero() && s.now().Sub(s.probedAt) < probeTTL {
		available := s.available
		s.mu.Unlock()
		return available
	}
	s.mu.Unlock()

	available := s.probe(ctx)

	s.mu.Lock()
	s.available = available
	s.probedAt = s.now()
	s.mu.Unlock()
	return available
}

// probe asks for the world tile. Any answer below 500 means the server is up;
// some tile servers refuse HEAD outright.
func (s *Selector) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	tile := strings.NewReplacer("{s}", "a", "{z}", "0", "{x}", "0", "{y}", "0").Replace(s.tileURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, tile, nil)
	if err != nil {
		s.log.Warn("map tile url invalid", "error", err)
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.UpstreamError("map_tiles", 0, err, true)
		return false
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		s.log.UpstreamError("map_tiles", resp.StatusCode, nil, true)
		return false
	}
	return true
}
