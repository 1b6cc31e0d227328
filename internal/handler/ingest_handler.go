package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/proximity-backend-go/internal/apperr"
	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/ingest"
	"github.com/jengzang/proximity-backend-go/internal/service"
	"github.com/jengzang/proximity-backend-go/pkg/response"
)

// Ingester applies a decoded batch
type Ingester interface {
	Ingest(ctx context.Context, batch ingest.Batch) (*service.IngestResult, error)
}

// IngestHandler handles POST /api/v1/ingest
type IngestHandler struct {
	decoder *ingest.Decoder
	ingest  Ingester
	log     *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(decoder *ingest.Decoder, ingester Ingester, log *slog.Logger) *IngestHandler {
	return &IngestHandler{decoder: decoder, ingest: ingester, log: log}
}

var confirmations = map[config.IngestShape]string{
	config.ShapeEmployeeMachines: "Employee machines updated",
	config.ShapeCoordinates:      "Positions recorded",
	config.ShapeSingle:           "Reading recorded",
	config.ShapeRawArray:         "Distances recorded",
}

// Ingest handles POST /api/v1/ingest
func (h *IngestHandler) Ingest(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, h.log, apperr.Validation("failed to read request body"))
		return
	}

	batch, err := h.decoder.Decode(body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), batch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Debug("batch ingested", "shape", batch.Shape(), "records", batch.Len(),
		"filtered", len(result.Filtered), "reports", len(result.Reports))
	response.Created(c, confirmations[batch.Shape()], result)
}
