package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server/dto"
)

// IngestHandler handles data ingestion and snapshot requests
type IngestHandler struct {
	engine *analyst.Engine
	logger *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(e *analyst.Engine, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{engine: e, logger: logger}
}

// Ingest handles POST /api/v1/ingest. The batch is applied synchronously as
// one graph update.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	rep, err := h.engine.Ingest(c.Request.Context(), &req.Batch)
	if err != nil {
		h.logger.Error("ingest request failed", "error", err)
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.IngestResponse{
		Success: true,
		Message: fmt.Sprintf("created %d, merged %d, skipped %d", rep.Created(), rep.Merged(), rep.Skipped),
		Report:  rep,
	})
}

// Snapshot handles POST /api/v1/snapshot
func (h *IngestHandler) Snapshot(c *gin.Context) {
	meta, err := h.engine.Persist(c.Request.Context())
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SnapshotResponse{
		Success:       true,
		Version:       meta.Version,
		Entities:      meta.Entities,
		Relationships: meta.Relationships,
		Aliases:       meta.Aliases,
	})
}
