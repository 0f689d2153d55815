package dto

import (
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/ingest"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// IngestRequest is an exchange batch.
type IngestRequest struct {
	types.Batch
}

// Validate performs validation on IngestRequest
func (r *IngestRequest) Validate() error {
	n := len(r.Entities) + len(r.Relationships) + len(r.Aliases)
	if n == 0 {
		return ErrEmptyBatch
	}
	if n > MaxBatchRecords {
		return ErrBatchTooLarge
	}
	return nil
}

// IngestResponse reports what a batch changed. Rejected records are listed
// in the report and never fail the request.
type IngestResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Report  ingest.Report `json:"report"`
}

// SnapshotResponse reports a saved snapshot.
type SnapshotResponse struct {
	Success       bool   `json:"success"`
	Version       uint64 `json:"version"`
	Entities      int    `json:"entities"`
	Relationships int    `json:"relationships"`
	Aliases       int    `json:"aliases"`
}
