package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check and metrics endpoints
func (r *Router) setupHealthRoutes() {
	handler := r.Container.Health.Handler()

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)

	if obs := r.Container.Observability; obs != nil && obs.MetricsEnabled() {
		r.Engine.GET("/metrics", gin.WrapH(obs.MetricsHandler()))
	} else {
		r.Engine.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	}
}
