// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerSecond() float64
	GetRateLimitBurst() int
}

// RedisConfig provides settings for the Redis-backed caches.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetCacheTTL() time.Duration
}

// GeocoderConfig provides settings for the address geocoding provider.
type GeocoderConfig interface {
	GetNominatimURL() string
	GetGeocoderUserAgent() string
	GetGeocoderCountryCodes() string
	GetGeocoderLanguage() string
	GetGeocoderTimeout() time.Duration
	GetGeocoderMinInterval() time.Duration
	GetGeocoderRetryBackoff() time.Duration
	GetGeocoderMinQueryLength() int
}

// MapLinkConfig provides settings for map-link expansion.
type MapLinkConfig interface {
	GetShortLinkHosts() []string
	GetShortLinkTimeout() time.Duration
}

// LocationSessionConfig provides timings for location form sessions.
type LocationSessionConfig interface {
	GetAddressDebounce() time.Duration
	GetMapLinkDebounce() time.Duration
	GetSubmitWaitTimeout() time.Duration
	GetSubmitPollInterval() time.Duration
	GetSessionTTL() time.Duration
}

// MapViewConfig provides settings for the map capability offered to forms.
type MapViewConfig interface {
	IsInteractiveMapEnabled() bool
	GetMapTileURL() string
	GetMapAttribution() string
	GetStaticMapURL() string
	GetExternalMapURL() string
	GetMapDefaultZoom() int
	GetMapLocale() string
}

// PhoneConfig provides settings for contact phone normalization.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	MigrationsDir          string
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RateLimitPerSecond     float64
	RateLimitBurst         int
	RedisURL               string
	RedisTLSInsecure       bool
	CacheTTL               time.Duration
	NominatimURL           string
	GeocoderUserAgent      string
	GeocoderCountryCodes   string
	GeocoderLanguage       string
	GeocoderTimeout        time.Duration
	GeocoderMinInterval    time.Duration
	GeocoderRetryBackoff   time.Duration
	GeocoderMinQueryLength int
	ShortLinkHosts         []string
	ShortLinkTimeout       time.Duration
	AddressDebounce        time.Duration
	MapLinkDebounce        time.Duration
	SubmitWaitTimeout      time.Duration
	SubmitPollInterval     time.Duration
	SessionTTL             time.Duration
	InteractiveMapEnabled  bool
	MapTileURL             string
	MapAttribution         string
	StaticMapURL           string
	ExternalMapURL         string
	MapDefaultZoom         int
	MapLocale              string
	DefaultPhoneRegion     string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string            { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool          { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string       { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool        { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerSecond() float64 { return c.RateLimitPerSecond }
func (c *Config) GetRateLimitBurst() int         { return c.RateLimitBurst }

// RedisConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetCacheTTL() time.Duration { return c.CacheTTL }

// GeocoderConfig implementation
func (c *Config) GetNominatimURL() string                { return c.NominatimURL }
func (c *Config) GetGeocoderUserAgent() string           { return c.GeocoderUserAgent }
func (c *Config) GetGeocoderCountryCodes() string        { return c.GeocoderCountryCodes }
func (c *Config) GetGeocoderLanguage() string            { return c.GeocoderLanguage }
func (c *Config) GetGeocoderTimeout() time.Duration      { return c.GeocoderTimeout }
func (c *Config) GetGeocoderMinInterval() time.Duration  { return c.GeocoderMinInterval }
func (c *Config) GetGeocoderRetryBackoff() time.Duration { return c.GeocoderRetryBackoff }
func (c *Config) GetGeocoderMinQueryLength() int         { return c.GeocoderMinQueryLength }

// MapLinkConfig implementation
func (c *Config) GetShortLinkHosts() []string        { return c.ShortLinkHosts }
func (c *Config) GetShortLinkTimeout() time.Duration { return c.ShortLinkTimeout }

// LocationSessionConfig implementation
func (c *Config) GetAddressDebounce() time.Duration    { return c.AddressDebounce }
func (c *Config) GetMapLinkDebounce() time.Duration    { return c.MapLinkDebounce }
func (c *Config) GetSubmitWaitTimeout() time.Duration  { return c.SubmitWaitTimeout }
func (c *Config) GetSubmitPollInterval() time.Duration { return c.SubmitPollInterval }
func (c *Config) GetSessionTTL() time.Duration         { return c.SessionTTL }

// MapViewConfig implementation
func (c *Config) IsInteractiveMapEnabled() bool { return c.InteractiveMapEnabled }
func (c *Config) GetMapTileURL() string         { return c.MapTileURL }
func (c *Config) GetMapAttribution() string     { return c.MapAttribution }
func (c *Config) GetStaticMapURL() string       { return c.StaticMapURL }
func (c *Config) GetExternalMapURL() string     { return c.ExternalMapURL }
func (c *Config) GetMapDefaultZoom() int        { return c.MapDefaultZoom }
func (c *Config) GetMapLocale() string          { return c.MapLocale }

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MigrationsDir:          getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerSecond:     mustFloat(getEnv("RATE_LIMIT_PER_SECOND", "20")),
		RateLimitBurst:         mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		CacheTTL:               mustDuration(getEnv("LOCATION_CACHE_TTL", "24h")),
		NominatimURL:           getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent:      getEnv("GEOCODER_USER_AGENT", ""),
		GeocoderCountryCodes:   getEnv("GEOCODER_COUNTRY_CODES", "ye"),
		GeocoderLanguage:       getEnv("GEOCODER_LANGUAGE", "ar,en"),
		GeocoderTimeout:        mustDuration(getEnv("GEOCODER_TIMEOUT", "5s")),
		GeocoderMinInterval:    mustDuration(getEnv("GEOCODER_MIN_INTERVAL", "1s")),
		GeocoderRetryBackoff:   mustDuration(getEnv("GEOCODER_RETRY_BACKOFF", "2s")),
		GeocoderMinQueryLength: mustInt(getEnv("GEOCODER_MIN_QUERY_LENGTH", "5")),
		ShortLinkHosts:         splitCSV(getEnv("SHORT_LINK_HOSTS", "maps.app.goo.gl,goo.gl,g.co")),
		ShortLinkTimeout:       mustDuration(getEnv("SHORT_LINK_TIMEOUT", "4s")),
		AddressDebounce:        mustDuration(getEnv("ADDRESS_DEBOUNCE", "1s")),
		MapLinkDebounce:        mustDuration(getEnv("MAP_LINK_DEBOUNCE", "800ms")),
		SubmitWaitTimeout:      mustDuration(getEnv("SUBMIT_WAIT_TIMEOUT", "3s")),
		SubmitPollInterval:     mustDuration(getEnv("SUBMIT_POLL_INTERVAL", "100ms")),
		SessionTTL:             mustDuration(getEnv("LOCATION_SESSION_TTL", "30m")),
		InteractiveMapEnabled:  strings.EqualFold(getEnv("MAP_INTERACTIVE_ENABLED", "true"), "true"),
		MapTileURL:             getEnv("MAP_TILE_URL", "https://tile.openstreetmap.org/{z}/{x}/{y}.png"),
		MapAttribution:         getEnv("MAP_ATTRIBUTION", "© OpenStreetMap contributors"),
		StaticMapURL:           getEnv("STATIC_MAP_URL", "https://staticmap.openstreetmap.de/staticmap.php"),
		ExternalMapURL:         getEnv("EXTERNAL_MAP_URL", "https://www.google.com/maps"),
		MapDefaultZoom:         mustInt(getEnv("MAP_DEFAULT_ZOOM", "15")),
		MapLocale:              getEnv("MAP_LOCALE", "en"),
		DefaultPhoneRegion:     getEnv("DEFAULT_PHONE_REGION", "YE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if strings.TrimSpace(c.GeocoderUserAgent) == "" {
		return fmt.Errorf("GEOCODER_USER_AGENT is required by the geocoding provider usage policy")
	}
	if c.GeocoderMinInterval <= 0 {
		return fmt.Errorf("GEOCODER_MIN_INTERVAL must be positive")
	}
	if c.GeocoderMinQueryLength < 1 {
		return fmt.Errorf("GEOCODER_MIN_QUERY_LENGTH must be at least 1")
	}
	if c.SubmitWaitTimeout <= 0 || c.SubmitPollInterval <= 0 {
		return fmt.Errorf("SUBMIT_WAIT_TIMEOUT and SUBMIT_POLL_INTERVAL must be positive")
	}
	if c.AddressDebounce <= 0 || c.MapLinkDebounce <= 0 {
		return fmt.Errorf("ADDRESS_DEBOUNCE and MAP_LINK_DEBOUNCE must be positive")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
