// Package pickuppoints provides the pickup point bounded context module.
package pickuppoints

import (
	"pickup_portal_backend/internal/events"
	apphttp "pickup_portal_backend/internal/http"
	"pickup_portal_backend/internal/pickuppoints/handler"
	"pickup_portal_backend/internal/pickuppoints/ports"
	"pickup_portal_backend/internal/pickuppoints/repository"
	"pickup_portal_backend/internal/pickuppoints/service"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pickup point bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the pickup point module.
func NewModule(pool *pgxpool.Pool, locations ports.LocationSubmitter, bus events.Bus, val *validator.Validator, cfg config.PhoneConfig, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), locations, bus, cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pickuppoints"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts pickup point routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/pickup-points")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.GetByID)
	group.PUT("/:id", m.handler.Update)

	ctx.Admin.DELETE("/pickup-points/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
