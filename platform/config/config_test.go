package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/pickup")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("GEOCODER_USER_AGENT", "pickup-portal/1.0 (ops@example.com)")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SHORT_LINK_HOSTS", " maps.app.goo.gl , goo.gl,, ")
	t.Setenv("ADDRESS_DEBOUNCE", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.GetAddressDebounce() != 750*time.Millisecond {
		t.Fatalf("address debounce = %v", cfg.GetAddressDebounce())
	}
	if got := cfg.GetShortLinkHosts(); len(got) != 2 || got[0] != "maps.app.goo.gl" || got[1] != "goo.gl" {
		t.Fatalf("short link hosts = %q", got)
	}
	if cfg.GetGeocoderMinQueryLength() < 1 || cfg.GetGeocoderMinInterval() <= 0 {
		t.Fatalf("geocoder policy defaults missing: %+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"missing database", "DATABASE_URL", "", "DATABASE_URL"},
		{"missing user agent", "GEOCODER_USER_AGENT", " ", "GEOCODER_USER_AGENT"},
		{"zero interval", "GEOCODER_MIN_INTERVAL", "0s", "GEOCODER_MIN_INTERVAL"},
		{"bad debounce", "MAP_LINK_DEBOUNCE", "soon", "DEBOUNCE"},
		{"wildcard with credentials", "CORS_ORIGINS", "*", "CORS_ALLOW_CREDENTIALS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
