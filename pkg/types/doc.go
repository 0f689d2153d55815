// Package types defines the core data types shared by the graph store and the
// reasoning engine.
//
// This package contains the fundamental types used throughout the module:
//   - Entity: a typed, canonically identified node
//   - Relationship: a directed edge carrying a set of relation types
//   - Attributes: an ordered string-keyed attribute map
//   - Candidate: an extracted mention resolved to a canonical entity
//   - ReasoningStep / ReasoningResult: the output contract of a reasoning call
//   - EntityRecord / RelationshipRecord / Batch: the exchange schema
//
// # Exchange schema
//
// Entities travel as {id, type, attributes} records and relationships as
// {source, target, types, attributes} records. The same shape is used for
// ingestion, snapshot persistence and export:
//
//	batch, err := types.DecodeBatch(r, types.FormatJSON)
//	if err != nil {
//	    // Handle malformed input
//	}
//
// # Errors
//
// Sentinel errors (ErrUnknownEndpoint, ErrEntityNotFound, ...) are matched with
// errors.Is. They are recovered locally and surfaced on ReasoningResult.Error
// rather than returned to the caller of Reason.
package types
