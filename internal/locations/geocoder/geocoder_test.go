package geocoder

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/internal/maps"
	"pickup_portal_backend/platform/cache"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type searchResult struct {
	candidates []maps.Candidate
	err        error
}

type fakeSearcher struct {
	mu      sync.Mutex
	results []searchResult
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]maps.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if len(f.results) == 0 {
		return nil, nil
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next.candidates, next.err
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func testConfig() *config.Config {
	return &config.Config{
		GeocoderCountryCodes:   "ye",
		GeocoderMinInterval:    time.Second,
		GeocoderRetryBackoff:   2 * time.Second,
		GeocoderMinQueryLength: 5,
	}
}

func newGeocoder(search Searcher, store *cache.JSONStore, sleeper *sleepRecorder) *Geocoder {
	return New(testConfig(), search, store, logger.Discard(),
		WithSleep(sleeper.sleep),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	)
}

var sanaa = maps.Candidate{Lat: 15.3694, Lon: 44.191, Locality: "Sana'a"}

func TestGeocodeShortInputIssuesNoRequest(t *testing.T) {
	search := &fakeSearcher{}
	sleeper := &sleepRecorder{}
	g := newGeocoder(search, nil, sleeper)

	for _, text := range []string{"", "   ", "Aden", " صنعا "} {
		res := g.Geocode(context.Background(), text)
		if res.Found {
			t.Fatalf("%q: expected unresolved", text)
		}
	}
	if search.calls() != 0 || len(sleeper.waits) != 0 {
		t.Fatalf("expected no provider traffic, calls=%d waits=%v", search.calls(), sleeper.waits)
	}
}

func TestGeocodeSuccessWaitsPolitenessDelay(t *testing.T) {
	search := &fakeSearcher{results: []searchResult{{candidates: []maps.Candidate{sanaa}}}}
	sleeper := &sleepRecorder{}
	g := newGeocoder(search, nil, sleeper)

	res := g.Geocode(context.Background(), "Tahrir Square, Sana'a")
	if !res.Found || res.Source != domain.SourceGeocoder || res.Locality != "Sana'a" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if len(sleeper.waits) != 1 || sleeper.waits[0] != time.Second {
		t.Fatalf("expected one politeness wait, got %v", sleeper.waits)
	}
}

func TestGeocodeEmptyTwiceIsUnresolved(t *testing.T) {
	search := &fakeSearcher{results: []searchResult{{}, {}}}
	sleeper := &sleepRecorder{}
	g := newGeocoder(search, nil, sleeper)

	res := g.Geocode(context.Background(), "Nowhere Street 404")
	if res.Found {
		t.Fatalf("expected unresolved, got %+v", res)
	}
	if !errors.Is(res.Cause, domain.ErrNoMatch) {
		t.Fatalf("expected no match cause, got %v", res.Cause)
	}
	if search.calls() != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", search.calls())
	}
	want := []time.Duration{time.Second, 2 * time.Second, time.Second}
	if len(sleeper.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, sleeper.waits)
	}
	for i := range want {
		if sleeper.waits[i] != want[i] {
			t.Fatalf("expected waits %v, got %v", want, sleeper.waits)
		}
	}
}

func TestGeocodeRetriesTransientFailures(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantWait time.Duration
	}{
		{name: "server error", err: &maps.UpstreamError{StatusCode: http.StatusBadGateway}, wantWait: 2 * time.Second},
		{name: "rate limited with hint", err: &maps.UpstreamError{StatusCode: http.StatusTooManyRequests, RetryAfter: 5 * time.Second}, wantWait: 5 * time.Second},
		{name: "network", err: errors.New("connection reset by peer"), wantWait: 2 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			search := &fakeSearcher{results: []searchResult{{err: tc.err}, {candidates: []maps.Candidate{sanaa}}}}
			sleeper := &sleepRecorder{}
			g := newGeocoder(search, nil, sleeper)

			res := g.Geocode(context.Background(), "Tahrir Square")
			if !res.Found {
				t.Fatalf("expected retry to succeed, got %v", res.Cause)
			}
			if search.calls() != 2 {
				t.Fatalf("expected 2 calls, got %d", search.calls())
			}
			if sleeper.waits[1] != tc.wantWait {
				t.Fatalf("expected backoff %v, got %v", tc.wantWait, sleeper.waits[1])
			}
		})
	}
}

func TestGeocodeSecondTransientFailureIsUnresolved(t *testing.T) {
	failure := &maps.UpstreamError{StatusCode: http.StatusServiceUnavailable}
	search := &fakeSearcher{results: []searchResult{{err: failure}, {err: failure}, {candidates: []maps.Candidate{sanaa}}}}
	g := newGeocoder(search, nil, &sleepRecorder{})

	res := g.Geocode(context.Background(), "Tahrir Square")
	if res.Found {
		t.Fatal("expected unresolved after second failure")
	}
	var netErr *domain.NetworkError
	if !errors.As(res.Cause, &netErr) || netErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected network error cause, got %v", res.Cause)
	}
	if search.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", search.calls())
	}
}

func TestGeocodeClientErrorIsNotRetried(t *testing.T) {
	search := &fakeSearcher{results: []searchResult{{err: &maps.UpstreamError{StatusCode: http.StatusForbidden}}}}
	g := newGeocoder(search, nil, &sleepRecorder{})

	if res := g.Geocode(context.Background(), "Tahrir Square"); res.Found {
		t.Fatal("expected unresolved")
	}
	if search.calls() != 1 {
		t.Fatalf("expected no retry, got %d calls", search.calls())
	}
}

func TestGeocodeCancelledContextStops(t *testing.T) {
	search := &fakeSearcher{}
	g := newGeocoder(search, nil, &sleepRecorder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := g.Geocode(ctx, "Tahrir Square")
	if res.Found || !errors.Is(res.Cause, context.Canceled) {
		t.Fatalf("expected cancellation cause, got %+v", res)
	}
	if search.calls() != 0 {
		t.Fatalf("expected no provider call, got %d", search.calls())
	}
}

func TestGeocodeCacheHitSkipsProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.NewJSONStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "geocode:", time.Hour)
	search := &fakeSearcher{results: []searchResult{{candidates: []maps.Candidate{sanaa}}}}
	sleeper := &sleepRecorder{}
	g := newGeocoder(search, store, sleeper)

	if res := g.Geocode(context.Background(), "Tahrir  Square"); !res.Found {
		t.Fatalf("first lookup failed: %v", res.Cause)
	}
	if !mr.Exists("geocode:ye:tahrir square") {
		t.Fatalf("expected normalized cache key, have %v", mr.Keys())
	}

	res := g.Geocode(context.Background(), "tahrir square")
	if !res.Found || res.Locality != "Sana'a" {
		t.Fatalf("expected cached resolution, got %+v", res)
	}
	if search.calls() != 1 || len(sleeper.waits) != 1 {
		t.Fatalf("expected cache hit without provider call or wait, calls=%d waits=%v", search.calls(), sleeper.waits)
	}
}

type blockingSearcher struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func (b *blockingSearcher) Search(ctx context.Context, _ string, _ int) ([]maps.Candidate, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.once.Do(func() { close(b.started) })

	select {
	case <-b.release:
		return []maps.Candidate{sanaa}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestGeocodeSharedLookupSurvivesCallerCancellation(t *testing.T) {
	search := &blockingSearcher{started: make(chan struct{}), release: make(chan struct{})}
	g := newGeocoder(search, nil, &sleepRecorder{})

	ctxA, cancelA := context.WithCancel(context.Background())
	resultA := make(chan domain.Resolution, 1)
	go func() { resultA <- g.Geocode(ctxA, "Tahrir Street Sanaa") }()
	<-search.started

	resultB := make(chan domain.Resolution, 1)
	go func() { resultB <- g.Geocode(context.Background(), "Tahrir Street Sanaa") }()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case res := <-resultA:
		if res.Found || !errors.Is(res.Cause, context.Canceled) {
			t.Fatalf("cancelled caller: expected cancellation, got %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(search.release)
	select {
	case res := <-resultB:
		if !res.Found || res.Locality != "Sana'a" {
			t.Fatalf("live caller: expected resolution, got found=%v cause=%v", res.Found, res.Cause)
		}
	case <-time.After(time.Second):
		t.Fatal("live caller did not return")
	}

	search.mu.Lock()
	defer search.mu.Unlock()
	if search.calls != 1 {
		t.Fatalf("expected one coalesced provider call, got %d", search.calls)
	}
}
