package router

import (
	"net/http"
	"strings"

	"dreamui/backend/internal/api"
	"dreamui/backend/internal/ws"
	"dreamui/backend/pkg/config"
	"dreamui/backend/pkg/di"
	"dreamui/backend/pkg/errors"
	"dreamui/backend/pkg/logger"
	"dreamui/backend/pkg/middleware"
	"dreamui/backend/shared/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	rateLimiter *middleware.RateLimiter
}

// unlimited paths are probes and long-lived connections
var unlimited = map[string]bool{
	"/health":     true,
	"/api/health": true,
	"/metrics":    true,
	"/ws/chat":    true,
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	if container.Observability != nil && container.Observability.MetricsEnabled() {
		engine.Use(observability.HTTPMetrics())
	}
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))
	engine.Use(middleware.BodyLimit(cfg.Security.MaxBodySize))

	opts := middleware.DefaultRateLimiterOptions()
	if cfg.Security.RateLimit > 0 {
		opts.Limit = rate.Limit(cfg.Security.RateLimit)
	}
	if cfg.Security.RateLimitBurst > 0 {
		opts.Burst = cfg.Security.RateLimitBurst
	}
	opts.Skip = func(c *gin.Context) bool { return unlimited[c.Request.URL.Path] }
	rateLimiter := middleware.NewRateLimiter(container.Logger, opts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		rateLimiter: rateLimiter,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	if path := r.Config.OpenAPI.SchemaPath; path != "" {
		r.AddOpenAPIValidation(path)
	}

	r.setupHealthRoutes()

	api.NewChatHandler(c.ChatService).RegisterRoutes(r.Engine)
	api.NewNotebookHandler(c.NotebookService).RegisterRoutes(r.Engine)
	api.NewModelsHandler(c.Inference).RegisterRoutes(r.Engine)
	api.NewArchiveHandler(c.Reconciler).RegisterRoutes(r.Engine)
	api.NewWorldHandler(c.World).RegisterRoutes(r.Engine)
	api.NewCharacterHandler(c.Characters).RegisterRoutes(r.Engine)
	api.NewPreferencesHandler(c.Preferences).RegisterRoutes(r.Engine)

	wsHandler := ws.NewHandler(c.Hub, c.ChatService, api.ToAppError, r.Config.Security.AllowedOrigins, r.Logger)
	r.Engine.GET("/ws/chat", wsHandler.ServeWs)
}

// Close stops background work owned by the router
func (r *Router) Close() {
	r.rateLimiter.Close()
}

// corsMiddleware allows the configured origins and exposes the streaming headers
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Origin, Upgrade, Connection, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", api.ArchiveIDHeader+", X-Request-ID, Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
