// Package maplink resolves coordinates from map links pasted into a form,
// expanding short links through their redirect chain first.
package maplink

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"pickup_portal_backend/internal/locations/domain"
	"pickup_portal_backend/platform/cache"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"

	"golang.org/x/net/publicsuffix"
)

const (
	providerName = "shortlink"
	maxHops      = 3
)

// Extractor turns a map link into a coordinate.
type Extractor struct {
	client     *http.Client
	shortHosts map[string]struct{}
	cache      *cache.JSONStore
	log        *logger.Logger
}

// NewExtractor builds an extractor. httpClient may be nil; redirects are
// always disabled on the client actually used. store may be nil.
func NewExtractor(cfg config.MapLinkConfig, httpClient *http.Client, store *cache.JSONStore, log *logger.Logger) *Extractor {
	client := &http.Client{Timeout: cfg.GetShortLinkTimeout()}
	if httpClient != nil {
		clone := *httpClient
		client = &clone
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	hosts := make(map[string]struct{}, len(cfg.GetShortLinkHosts()))
	for _, h := range cfg.GetShortLinkHosts() {
		hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	return &Extractor{client: client, shortHosts: hosts, cache: store, log: log}
}

// Resolve expands link when it is a short link and looks for an embedded
// coordinate. It never fails outright: no coordinate yields an unresolved
// result carrying a NoMatchError.
func (e *Extractor) Resolve(ctx context.Context, link string) domain.Resolution {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.Unresolved(&domain.NoMatchError{})
	}

	target := link
	if e.IsShortLink(link) {
		target = e.Expand(ctx, link)
	}

	if coord, ok := ExtractCoordinate(target); ok {
		return domain.Resolved(coord, domain.SourceMapLink, "")
	}
	if target != link {
		if coord, ok := ExtractCoordinate(link); ok {
			return domain.Resolved(coord, domain.SourceMapLink, "")
		}
	}

	return domain.Unresolved(&domain.NoMatchError{Input: link})
}

// IsShortLink reports whether link points at a configured redirect service,
// either by exact host or by registrable domain.
func (e *Extractor) IsShortLink(link string) bool {
	u, err := url.Parse(withScheme(link))
	if err != nil {
		return false
	}
	return e.isShortHost(u.Host)
}

func (e *Extractor) isShortHost(hostport string) bool {
	host := strings.ToLower(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return false
	}
	if _, ok := e.shortHosts[host]; ok {
		return true
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	_, ok := e.shortHosts[registrable]
	return ok
}

// Expand follows up to three redirects while the target is still a short
// link. Any failure returns the last URL known, the input itself at worst.
func (e *Extractor) Expand(ctx context.Context, link string) string {
	current := withScheme(strings.TrimSpace(link))
	key := cacheKey(current)

	var cached string
	if hit, err := e.cache.Get(ctx, key, &cached); err != nil {
		e.log.Warn("short link cache read failed", "error", err)
	} else if hit && cached != "" {
		return cached
	}

	expanded := false
	for hop := 0; hop < maxHops; hop++ {
		next, err := e.follow(ctx, current)
		if err != nil {
			e.log.WithContext(ctx).UpstreamError(providerName, statusOf(err), err, true)
			break
		}
		current = next
		expanded = true
		if !e.IsShortLink(current) {
			break
		}
	}

	if expanded {
		if err := e.cache.Set(ctx, key, current); err != nil {
			e.log.Warn("short link cache write failed", "error", err)
		}
		return current
	}
	return link
}

type redirectError struct {
	status int
}

func (e *redirectError) Error() string {
	return fmt.Sprintf("expected redirect, got status %d", e.status)
}

var errNoLocation = errors.New("redirect without Location header")

func (e *Extractor) follow(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", &redirectError{status: resp.StatusCode}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errNoLocation
	}

	next, err := req.URL.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse Location header: %w", err)
	}
	return next.String(), nil
}

func withScheme(link string) string {
	if strings.Contains(link, "://") {
		return link
	}
	return "https://" + link
}

func cacheKey(link string) string {
	sum := sha1.Sum([]byte(link))
	return hex.EncodeToString(sum[:])
}

func statusOf(err error) int {
	var re *redirectError
	if errors.As(err, &re) {
		return re.status
	}
	return 0
}
