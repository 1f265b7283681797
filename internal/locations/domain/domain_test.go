package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestNewCoordinateBounds(t *testing.T) {
	cases := []struct {
		lat, lng float64
		ok       bool
	}{
		{15.3694, 44.191, true},
		{-90, -180, true},
		{90, 180, true},
		{90.0001, 0, false},
		{0, -180.5, false},
		{math.NaN(), 0, false},
		{0, math.Inf(1), false},
	}

	for _, tc := range cases {
		_, err := NewCoordinate(tc.lat, tc.lng)
		if tc.ok && err != nil {
			t.Fatalf("%v,%v: unexpected error %v", tc.lat, tc.lng, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%v,%v: expected error", tc.lat, tc.lng)
			}
			if !errors.Is(err, ErrNoMatch) {
				t.Fatalf("expected invalid coordinate to count as no match, got %v", err)
			}
		}
	}
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("15.3694", "44.1910")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.String() != "15.369400,44.191000" {
		t.Fatalf("unexpected rendering %s", c)
	}
	if _, err := ParseCoordinate("abc", "1"); err == nil {
		t.Fatal("expected non-numeric token to fail")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	rl := &RateLimitError{NetworkError: NetworkError{Provider: "nominatim", StatusCode: 429}, RetryAfter: 3 * time.Second}
	wrapped := fmt.Errorf("geocode: %w", rl)

	if !IsTransient(wrapped) {
		t.Fatal("rate limit should be transient")
	}
	if RetryAfter(wrapped) != 3*time.Second {
		t.Fatalf("unexpected retry after %v", RetryAfter(wrapped))
	}
	var netErr *NetworkError
	if !errors.As(wrapped, &netErr) || netErr.StatusCode != 429 {
		t.Fatal("expected embedded network error")
	}
	if IsTransient(&NoMatchError{Input: "x"}) {
		t.Fatal("no match is not transient")
	}
	if !errors.Is(fmt.Errorf("x: %w", &NoMatchError{Input: "y"}), ErrNoMatch) {
		t.Fatal("expected wrapped no match to match")
	}
}
