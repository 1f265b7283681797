// Package http holds the pieces shared by the router and the domain modules.
package http

import (
	"context"

	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
)

// RouterConfig is the configuration the router reads: listener, CORS,
// rate limits and the JWT secret.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/health. *pgxpool.Pool satisfies it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is what the composition root hands to the router.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
