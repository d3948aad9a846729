// Package api exposes the HTTP trigger surface: a health probe and an
// endpoint that executes a forecast run on demand.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticketline/revcast/internal/logger"
	"github.com/ticketline/revcast/internal/models"
)

// Runner executes forecast runs.
type Runner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// Handler serves the forecast trigger endpoints.
type Handler struct {
	runner Runner
}

// NewHandler creates a Handler around a forecast runner.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/forecast/run", h.RunForecast)
	}

	return router
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// RunForecast executes a forecast run and reports its summary.
func (h *Handler) RunForecast(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if err != nil {
		logger.Error("Forecast run failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Forecast uploaded",
		"events_seen": summary.EventsSeen,
		"forecasted":  summary.Forecasted,
		"skipped":     summary.Skipped,
		"rows":        summary.Rows,
		"duration":    summary.Duration.String(),
	})
}
