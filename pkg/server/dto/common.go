package dto

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyQuery      = errors.New("query cannot be empty")
	ErrQueryTooLong    = errors.New("query exceeds maximum length (4096)")
	ErrEmptyQueries    = errors.New("queries cannot be empty")
	ErrTooManyQueries  = errors.New("queries count exceeds maximum (100)")
	ErrEmptyBatch      = errors.New("batch contains no records")
	ErrBatchTooLarge   = errors.New("batch exceeds maximum record count (100000)")
	ErrInvalidHops     = errors.New("hops must be between 0 and 3")
	ErrMissingEndpoint = errors.New("source and target are required")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxQueryLength   = 4096
	MaxBatchQueries  = 100
	MaxBatchRecords  = 100_000
	MaxSeeds         = 32
	MaxHops          = 3
	MaxSearchResults = 100
)

// Result represents a generic API result
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func validateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return ErrEmptyQuery
	}
	if len(q) > MaxQueryLength {
		return ErrQueryTooLong
	}
	return nil
}
