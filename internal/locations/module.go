// Package locations provides the location resolution bounded context:
// map link extraction, address geocoding and the per-form sessions that
// reconcile them with manual input.
package locations

import (
	"context"
	"fmt"

	"pickup_portal_backend/internal/events"
	apphttp "pickup_portal_backend/internal/http"
	"pickup_portal_backend/internal/locations/geocoder"
	"pickup_portal_backend/internal/locations/handler"
	"pickup_portal_backend/internal/locations/maplink"
	"pickup_portal_backend/internal/locations/mapview"
	"pickup_portal_backend/internal/locations/service"
	"pickup_portal_backend/platform/cache"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

// Config combines the settings the location module reads.
type Config interface {
	config.GeocoderConfig
	config.MapLinkConfig
	config.LocationSessionConfig
	config.MapViewConfig
	config.RedisConfig
}

// Module is the locations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the resolvers and the session service. redisClient may be
// nil, in which case link expansions and geocodes are not cached.
func NewModule(cfg Config, search geocoder.Searcher, redisClient *redis.Client, val *validator.Validator, log *logger.Logger) (*Module, error) {
	catalogue, err := mapview.LoadCatalogue()
	if err != nil {
		return nil, fmt.Errorf("load map instructions: %w", err)
	}

	links := maplink.NewExtractor(cfg, nil,
		cache.NewJSONStore(redisClient, "maplink:expand:", cfg.GetCacheTTL()), log)
	geo := geocoder.New(cfg, search,
		cache.NewJSONStore(redisClient, "geocode:", cfg.GetCacheTTL()), log)
	selector := mapview.NewSelector(cfg, catalogue, nil, log)

	svc := service.New(cfg, links, geo, selector, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "locations"
}

// Service returns the session service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts location routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/locations")
	group.GET("/map-capability", m.handler.MapCapability)

	sessions := group.Group("/sessions")
	sessions.POST("", m.handler.OpenSession)
	sessions.GET("/:id", m.handler.GetSession)
	sessions.PATCH("/:id/input", m.handler.UpdateInput)
	sessions.POST("/:id/manual", m.handler.ApplyManual)
	sessions.POST("/:id/pick", m.handler.Pick)
	sessions.POST("/:id/submit", m.handler.Submit)
	sessions.GET("/:id/events", m.handler.Stream)
	sessions.DELETE("/:id", m.handler.CloseSession)
}

// Start runs the idle-session janitor until ctx is done.
func (m *Module) Start(ctx context.Context) {
	go m.service.RunJanitor(ctx)
}

// Shutdown closes every open session.
func (m *Module) Shutdown() {
	m.service.Shutdown()
}

// RegisterHandlers subscribes to pickup point events to discard sessions
// whose form was saved.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.PickupPointSaved{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.PickupPointSaved:
		if e.LocationSessionID != "" {
			m.service.Discard(e.LocationSessionID)
		}
		return nil
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
