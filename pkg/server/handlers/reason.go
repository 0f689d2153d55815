package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/reasoning"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server/dto"
)

// ReasonHandler answers questions.
type ReasonHandler struct {
	analyst analyst.Analyst
}

// NewReasonHandler creates a new reason handler
func NewReasonHandler(a analyst.Analyst) *ReasonHandler {
	return &ReasonHandler{analyst: a}
}

// Reason handles POST /api/v1/reason. Reasoning failures are part of the
// result, so any well-formed request gets a 200.
func (h *ReasonHandler) Reason(c *gin.Context) {
	var req dto.ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res := h.analyst.ReasonWith(c.Request.Context(), reasoning.Request{
		Query: req.Query,
		Seeds: req.Seeds,
		Hops:  req.Hops,
	})
	c.JSON(http.StatusOK, res)
}

// Batch handles POST /api/v1/reason/batch
func (h *ReasonHandler) Batch(c *gin.Context) {
	var req dto.BatchReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.analyst.ReasonBatch(c.Request.Context(), req.Queries)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.BatchReasonResponse{Results: results})
}
