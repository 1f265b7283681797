package http

import (
	"pickup_portal_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's endpoints.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups modules mount on.
type RouterContext struct {
	// Engine is the root engine.
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthRequired.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, which also requires the admin role.
	Admin *gin.RouterGroup
	// Config exposes the JWT secret for modules adding their own auth.
	Config config.JWTConfig
	// AuthMiddleware is the middleware guarding Protected.
	AuthMiddleware gin.HandlerFunc
}
