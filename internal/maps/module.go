package maps

import (
	apphttp "pickup_portal_backend/internal/http"
	"pickup_portal_backend/platform/validator"
)

// Module mounts address autocomplete on the shared Nominatim client.
type Module struct {
	handler *Handler
}

// NewModule creates the maps module.
func NewModule(svc *Service, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "maps"
}

// RegisterRoutes mounts the lookup endpoint under the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/maps/address-lookup", m.handler.LookupAddress)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
