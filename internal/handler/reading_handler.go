package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/proximity-backend-go/internal/models"
	"github.com/jengzang/proximity-backend-go/internal/service"
	"github.com/jengzang/proximity-backend-go/pkg/response"
)

// ReadingHandler handles the read endpoints
type ReadingHandler struct {
	readings *service.ReadingService
	log      *slog.Logger
}

// NewReadingHandler creates a new reading handler
func NewReadingHandler(readings *service.ReadingService, log *slog.Logger) *ReadingHandler {
	return &ReadingHandler{readings: readings, log: log}
}

// ListReadings handles GET /api/v1/readings
func (h *ReadingHandler) ListReadings(c *gin.Context) {
	var filter models.ReadingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	readings, err := h.readings.ListReadings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, readings)
}

// LatestReadings handles GET /api/v1/readings/latest
func (h *ReadingHandler) LatestReadings(c *gin.Context) {
	readings, err := h.readings.LatestReadings(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, readings)
}

// FilteredReadings handles GET /api/v1/readings/filtered
func (h *ReadingHandler) FilteredReadings(c *gin.Context) {
	if c.Query("values") == "true" || c.Query("values") == "1" {
		values, err := h.readings.FilteredValues(c.Request.Context())
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		response.Success(c, values)
		return
	}

	series, err := h.readings.FilteredSeries(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, series)
}

// GetPosition handles GET /api/v1/positions/:key[?kind=tracked|machine]
func (h *ReadingHandler) GetPosition(c *gin.Context) {
	p, err := h.readings.GetPosition(c.Request.Context(), c.Query("kind"), c.Param("key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, p)
}

// ListDistanceReports handles GET /api/v1/distances
func (h *ReadingHandler) ListDistanceReports(c *gin.Context) {
	reports, err := h.readings.DistanceReports(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.Success(c, reports)
}
