package dto

import (
	"errors"
	"fmt"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ReasonRequest asks one question. Seeds are entity names resolved before
// extraction runs; Hops overrides the intent's default budget.
type ReasonRequest struct {
	Query string   `json:"query" binding:"required"`
	Seeds []string `json:"seeds,omitempty"`
	Hops  int      `json:"hops,omitempty"`
}

// Validate performs validation on ReasonRequest
func (r *ReasonRequest) Validate() error {
	if err := validateQuery(r.Query); err != nil {
		return err
	}
	if r.Hops < 0 || r.Hops > MaxHops {
		return ErrInvalidHops
	}
	if len(r.Seeds) > MaxSeeds {
		return errors.New("seeds count exceeds maximum (32)")
	}
	return nil
}

// BatchReasonRequest asks several questions against one graph version.
type BatchReasonRequest struct {
	Queries []string `json:"queries" binding:"required"`
}

// Validate performs validation on BatchReasonRequest
func (r *BatchReasonRequest) Validate() error {
	if len(r.Queries) == 0 {
		return ErrEmptyQueries
	}
	if len(r.Queries) > MaxBatchQueries {
		return ErrTooManyQueries
	}
	for i, q := range r.Queries {
		if err := validateQuery(q); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
	}
	return nil
}

// BatchReasonResponse carries results in request order.
type BatchReasonResponse struct {
	Results []*types.ReasoningResult `json:"results"`
}
