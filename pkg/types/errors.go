package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the traversal engine and the reasoning
// pipeline.
var (
	// ErrUnknownEndpoint indicates a relationship referenced an entity that does not exist.
	ErrUnknownEndpoint = errors.New("unknown relationship endpoint")

	// ErrInvalidRelationType indicates a (sourceType, relation, targetType) triple
	// is not allowed by the validity table.
	ErrInvalidRelationType = errors.New("invalid relation type for endpoint types")

	// ErrUnknownEntityType indicates an entity type outside the configured set.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrEntityNotFound indicates an id could not be resolved, or extraction found nothing.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInsufficientEntities indicates a comparison needed more resolved entities.
	ErrInsufficientEntities = errors.New("insufficient entities")

	// ErrNoPathFound indicates a bounded search ended without reaching the target.
	ErrNoPathFound = errors.New("no path found")

	// ErrCollaboratorTimeout indicates an external collaborator did not answer in time.
	ErrCollaboratorTimeout = errors.New("collaborator timeout")

	// ErrCorruptIndex indicates an index references a missing canonical id.
	ErrCorruptIndex = errors.New("graph index references missing entity")
)

// ErrorCode is the stable, serializable form of the error taxonomy carried on
// a ReasoningResult.
type ErrorCode string

const (
	CodeNone                 ErrorCode = ""
	CodeUnknownEndpoint      ErrorCode = "UnknownEndpoint"
	CodeInvalidRelationType  ErrorCode = "InvalidRelationType"
	CodeEntityNotFound       ErrorCode = "EntityNotFound"
	CodeInsufficientEntities ErrorCode = "InsufficientEntities"
	CodeNoPathFound          ErrorCode = "NoPathFound"
	CodeCollaboratorTimeout  ErrorCode = "CollaboratorTimeout"
)

// CodeOf maps an error to its ErrorCode.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrUnknownEndpoint):
		return CodeUnknownEndpoint
	case errors.Is(err, ErrInvalidRelationType):
		return CodeInvalidRelationType
	case errors.Is(err, ErrEntityNotFound):
		return CodeEntityNotFound
	case errors.Is(err, ErrInsufficientEntities):
		return CodeInsufficientEntities
	case errors.Is(err, ErrNoPathFound):
		return CodeNoPathFound
	case errors.Is(err, ErrCollaboratorTimeout):
		return CodeCollaboratorTimeout
	default:
		return ErrorCode(err.Error())
	}
}

// EndpointError reports which side of a relationship could not be resolved.
type EndpointError struct {
	Endpoint string // "source" or "target"
	ID       string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("unknown relationship %s %q", e.Endpoint, e.ID)
}

// Is implements errors.Is support for EndpointError.
// This allows errors.Is(err, ErrUnknownEndpoint) to match.
func (e *EndpointError) Is(target error) bool {
	if target == ErrUnknownEndpoint {
		return true
	}
	_, ok := target.(*EndpointError)
	return ok
}

// RelationTypeError reports a triple rejected by the validity table.
type RelationTypeError struct {
	SourceType EntityType
	Relation   RelationType
	TargetType EntityType
}

func (e *RelationTypeError) Error() string {
	return fmt.Sprintf("relation %s not allowed from %s to %s", e.Relation, e.SourceType, e.TargetType)
}

// Is implements errors.Is support for RelationTypeError.
func (e *RelationTypeError) Is(target error) bool {
	if target == ErrInvalidRelationType {
		return true
	}
	_, ok := target.(*RelationTypeError)
	return ok
}

// ConflictError reports a raw id that already names a different entity.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("id %q already names an entity with different content", e.ID)
}
