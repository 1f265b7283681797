package maplink

import (
	"net/url"
	"regexp"
	"strings"

	"pickup_portal_backend/internal/locations/domain"
)

// coordinatePatterns are tried in order; the first pattern yielding a valid
// coordinate wins. Tokens are deliberately loose and validated by ParseFloat
// so that a garbage match falls through to the next pattern.
var coordinatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`@([^,/@?&#]+),([^,/@?&#]+)`),
	regexp.MustCompile(`[?&]q=([^,&#]+),([^,&#]+)`),
	regexp.MustCompile(`[?&]ll=([^,&#]+),([^,&#]+)`),
	regexp.MustCompile(`[?&]center=([^,&#]+),([^,&#]+)`),
}

// ExtractCoordinate finds a coordinate embedded in a (long) map URL.
func ExtractCoordinate(rawURL string) (domain.Coordinate, bool) {
	for _, candidate := range decodedForms(rawURL) {
		for _, pattern := range coordinatePatterns {
			if coord, ok := firstValid(pattern, candidate); ok {
				return coord, true
			}
		}
	}
	return domain.Coordinate{}, false
}

func firstValid(pattern *regexp.Regexp, s string) (domain.Coordinate, bool) {
	for _, m := range pattern.FindAllStringSubmatch(s, -1) {
		coord, err := domain.ParseCoordinate(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		if err == nil {
			return coord, true
		}
	}
	return domain.Coordinate{}, false
}

// decodedForms returns the percent-decoded URL first, then the raw one when
// decoding changed it or failed.
func decodedForms(rawURL string) []string {
	decoded, err := url.PathUnescape(rawURL)
	if err != nil || decoded == rawURL {
		return []string{rawURL}
	}
	return []string{decoded, rawURL}
}
