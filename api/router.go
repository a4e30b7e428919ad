// Package api exposes the nudge daemon's control and status HTTP API.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyohosu/translate-nudge/action"
	"github.com/garyohosu/translate-nudge/api/handler"
	"github.com/garyohosu/translate-nudge/api/middleware"
	"github.com/garyohosu/translate-nudge/config"
	"github.com/garyohosu/translate-nudge/processed"
	"github.com/garyohosu/translate-nudge/report"
	"github.com/garyohosu/translate-nudge/trigger"
)

// Deps are the running components the routes read and drive.
type Deps struct {
	Scheduler *trigger.Scheduler
	Runner    *action.Runner
	Seen      *processed.Set
	Renderer  *report.Renderer
	Target    string
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work. ctx bounds
// the rate limiter's background sweep.
func NewRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(d.Scheduler, d.Target, d.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/stats", handler.Stats(d.Scheduler, d.Runner))
	protected.POST("/signals", handler.PostSignal(d.Scheduler))
	protected.POST("/trigger", handler.PostTrigger(d.Scheduler))
	protected.GET("/pending", handler.Pending(d.Runner, d.Seen, d.Renderer))

	return r
}
