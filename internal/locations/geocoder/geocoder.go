// Package geocoder turns free-text addresses into coordinates through the
// shared Nominatim client, honouring the provider's usage policy.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/internal/maps"
	"pickup_portal_backend/platform/cache"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/sanitize"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	providerName = "nominatim"
	maxAttempts  = 2

	// sharedLookupTimeout bounds a coalesced lookup, which no longer follows
	// any single caller's context.
	sharedLookupTimeout = 30 * time.Second
)

// Searcher is the provider call the geocoder needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]maps.Candidate, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Geocoder resolves addresses. One instance is shared process-wide so its
// limiter spaces requests across every form session.
type Geocoder struct {
	search      Searcher
	limiter     *rate.Limiter
	cache       *cache.JSONStore
	group       singleflight.Group
	sleep       SleepFunc
	log         *logger.Logger
	minLength   int
	minInterval time.Duration
	backoff     time.Duration
	country     string
}

// Option customises a Geocoder.
type Option func(*Geocoder)

// WithSleep replaces the wall-clock wait used for politeness and backoff.
func WithSleep(fn SleepFunc) Option {
	return func(g *Geocoder) { g.sleep = fn }
}

// WithLimiter replaces the provider spacing limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *Geocoder) { g.limiter = l }
}

// New builds a geocoder. store may be nil to disable caching.
func New(cfg config.GeocoderConfig, search Searcher, store *cache.JSONStore, log *logger.Logger, opts ...Option) *Geocoder {
	g := &Geocoder{
		search:      search,
		limiter:     rate.NewLimiter(rate.Every(cfg.GetGeocoderMinInterval()), 1),
		cache:       store,
		sleep:       sleepContext,
		log:         log,
		minLength:   cfg.GetGeocoderMinQueryLength(),
		minInterval: cfg.GetGeocoderMinInterval(),
		backoff:     cfg.GetGeocoderRetryBackoff(),
		country:     strings.ToLower(cfg.GetGeocoderCountryCodes()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Qualifies reports whether text is long enough to be worth a provider call.
func (g *Geocoder) Qualifies(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= g.minLength
}

// cachedResult is the cache payload for a successful lookup.
type cachedResult struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Locality  string  `json:"locality,omitempty"`
}

// Geocode resolves text to the provider's top candidate. Failures of any
// kind come back as an unresolved result, never as an error.
func (g *Geocoder) Geocode(ctx context.Context, text string) domain.Resolution {
	query := sanitize.Text(text)
	if !g.Qualifies(query) {
		return domain.Unresolved(&domain.NoMatchError{Input: query})
	}

	key := g.country + ":" + sanitize.QueryKey(query)

	var cached cachedResult
	hit, err := g.cache.Get(ctx, key, &cached)
	if err != nil {
		g.log.Warn("geocode cache read failed", "error", err)
	}
	if hit {
		if coord, err := domain.NewCoordinate(cached.Latitude, cached.Longitude); err == nil {
			return domain.Resolved(coord, domain.SourceGeocoder, cached.Locality)
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.Unresolved(err)
	}

	shared := g.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		res := g.lookup(lookupCtx, query)
		if res.Found {
			entry := cachedResult{
				Latitude:  res.Coordinate.Latitude,
				Longitude: res.Coordinate.Longitude,
				Locality:  res.Locality,
			}
			if err := g.cache.Set(lookupCtx, key, entry); err != nil {
				g.log.Warn("geocode cache write failed", "error", err)
			}
		}
		return res, nil
	})

	select {
	case out := <-shared:
		return out.Val.(domain.Resolution)
	case <-ctx.Done():
		return domain.Unresolved(ctx.Err())
	}
}

// lookup runs the initial attempt plus at most one retry.
func (g *Geocoder) lookup(ctx context.Context, query string) domain.Resolution {
	var cause error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := max(g.backoff, domain.RetryAfter(cause))
			if err := g.sleep(ctx, wait); err != nil {
				return domain.Unresolved(err)
			}
		}

		res, retry := g.attempt(ctx, query)
		if res.Found || !retry {
			return res
		}
		cause = res.Cause
		g.log.WithContext(ctx).Debug("geocode attempt failed",
			"attempt", attempt+1, "error", cause)
	}
	return domain.Unresolved(cause)
}

// attempt performs one politely spaced provider call and reports whether a
// failure is worth retrying.
func (g *Geocoder) attempt(ctx context.Context, query string) (domain.Resolution, bool) {
	if err := g.sleep(ctx, g.minInterval); err != nil {
		return domain.Unresolved(err), false
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Unresolved(err), false
	}

	candidates, err := g.search.Search(ctx, query, 1)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Unresolved(ctx.Err()), false
		}
		cause := classify(err)
		transient := domain.IsTransient(cause)
		g.log.WithContext(ctx).UpstreamError(providerName, statusOf(err), err, transient)
		return domain.Unresolved(cause), transient
	}

	if len(candidates) == 0 {
		return domain.Unresolved(&domain.NoMatchError{Input: query}), true
	}

	top := candidates[0]
	coord, err := domain.NewCoordinate(top.Lat, top.Lon)
	if err != nil {
		return domain.Unresolved(err), false
	}
	return domain.Resolved(coord, domain.SourceGeocoder, top.Locality), false
}

// classify maps provider failures onto the resolution error taxonomy.
func classify(err error) error {
	var upstream *maps.UpstreamError
	if !errors.As(err, &upstream) {
		return &domain.NetworkError{Provider: providerName, Err: err}
	}

	switch {
	case upstream.StatusCode == http.StatusTooManyRequests:
		return &domain.RateLimitError{
			NetworkError: domain.NetworkError{Provider: providerName, StatusCode: upstream.StatusCode, Err: err},
			RetryAfter:   upstream.RetryAfter,
		}
	case upstream.StatusCode >= http.StatusInternalServerError:
		return &domain.NetworkError{Provider: providerName, StatusCode: upstream.StatusCode, Err: err}
	default:
		return fmt.Errorf("%s rejected query: %w", providerName, err)
	}
}

func statusOf(err error) int {
	var upstream *maps.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
