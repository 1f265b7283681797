package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
)

const (
	providerName       = "nominatim"
	searchPath         = "/search"
	defaultLookupLimit = 5
)

// Service is the Nominatim search client shared by the address lookup
// endpoint and the location geocoder.
type Service struct {
	client       *http.Client
	log          *logger.Logger
	baseURL      string
	userAgent    string
	countryCodes string
	language     string
}

// NewService builds a client from geocoder settings. A nil httpClient gets
// one with the configured timeout.
func NewService(cfg config.GeocoderConfig, httpClient *http.Client, log *logger.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.GetGeocoderTimeout()}
	}
	return &Service{
		client:       httpClient,
		log:          log,
		baseURL:      strings.TrimRight(cfg.GetNominatimURL(), "/"),
		userAgent:    cfg.GetGeocoderUserAgent(),
		countryCodes: cfg.GetGeocoderCountryCodes(),
		language:     cfg.GetGeocoderLanguage(),
	}
}

// CountryCodes returns the country bias sent with every search.
func (s *Service) CountryCodes() string {
	return s.countryCodes
}

// Search runs a free-text search. Transport failures are returned as-is;
// non-200 answers as *UpstreamError. An empty slice means no match.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	if s.countryCodes != "" {
		params.Set("countrycodes", s.countryCodes)
	}
	if s.language != "" {
		params.Set("accept-language", s.language)
	}

	reqURL := fmt.Sprintf("%s%s?%s", s.baseURL, searchPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	var rawResults []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", providerName, err)
	}

	candidates := make([]Candidate, 0, len(rawResults))
	for _, raw := range rawResults {
		candidate, ok := buildCandidate(raw)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// SearchAddress returns street-level suggestions for the address autocomplete.
func (s *Service) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	candidates, err := s.Search(ctx, query, defaultLookupLimit)
	if err != nil {
		s.log.UpstreamError(providerName, upstreamStatus(err), err, true)
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(candidates))
	for _, candidate := range candidates {
		suggestion, ok := buildSuggestion(candidate)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}

func buildCandidate(raw nominatimResponse) (Candidate, bool) {
	lat, err := strconv.ParseFloat(raw.Lat, 64)
	if err != nil {
		return Candidate{}, false
	}
	lon, err := strconv.ParseFloat(raw.Lon, 64)
	if err != nil {
		return Candidate{}, false
	}

	return Candidate{
		Lat:         lat,
		Lon:         lon,
		DisplayName: raw.DisplayName,
		Locality:    pickCity(raw.Address),
		Road:        raw.Address.Road,
		House:       raw.Address.HouseNumber,
		Postcode:    raw.Address.Postcode,
	}, true
}

func buildSuggestion(candidate Candidate) (AddressSuggestion, bool) {
	if candidate.Road == "" || candidate.Locality == "" {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:      candidate.Road,
		HouseNumber: candidate.House,
		ZipCode:     candidate.Postcode,
		City:        candidate.Locality,
		Lat:         candidate.Lat,
		Lon:         candidate.Lon,
	}

	suggestion.Label = buildLabel(suggestion)

	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	for _, name := range []string{
		address.City,
		address.Town,
		address.Village,
		address.Municipality,
		address.Hamlet,
	} {
		if name != "" {
			return name
		}
	}
	return ""
}

func buildLabel(suggestion AddressSuggestion) string {
	parts := []string{suggestion.Street}
	if suggestion.HouseNumber != "" {
		parts = append(parts, suggestion.HouseNumber)
	}
	parts = append(parts, ",")
	if suggestion.ZipCode != "" {
		parts = append(parts, suggestion.ZipCode)
	}
	parts = append(parts, suggestion.City)

	label := strings.Join(parts, " ")
	label = strings.ReplaceAll(label, " ,", ",")
	return strings.TrimSpace(label)
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func upstreamStatus(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}
