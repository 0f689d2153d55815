package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server/dto"
	snapshotstore "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/storage/badger"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// writeEngineError maps an engine error onto a status and a stable code.
func writeEngineError(c *gin.Context, err error) {
	status := statusFor(err)
	code := string(types.CodeOf(err))
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		code = "internal_error"
		if status == http.StatusServiceUnavailable {
			code = "unavailable"
		}
	}
	writeError(c, status, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrEntityNotFound),
		errors.Is(err, types.ErrUnknownEndpoint),
		errors.Is(err, types.ErrNoPathFound),
		errors.Is(err, snapshotstore.ErrNoSnapshot):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidRelationType),
		errors.Is(err, types.ErrUnknownEntityType),
		errors.Is(err, types.ErrInsufficientEntities):
		return http.StatusBadRequest
	case errors.Is(err, analyst.ErrNoSnapshotStore):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, types.ErrCollaboratorTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
