package types

import (
	"errors"
	"slices"
	"strings"
)

// Validation errors
var (
	ErrEmptyID       = errors.New("id cannot be empty")
	ErrEmptyType     = errors.New("type cannot be empty")
	ErrEmptyRelation = errors.New("relationship must carry at least one type")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

// EntityType is one member of the closed, configurable set of entity kinds.
type EntityType string

// Default entity types. The set actually accepted by a store comes from its
// schema, these are the ones the bundled schema declares.
const (
	EntityTypePerson       EntityType = "Person"
	EntityTypeGroup        EntityType = "Group"
	EntityTypeOrganization EntityType = "Organization"
	EntityTypeWork         EntityType = "Work"
	EntityTypeCategory     EntityType = "Category"
	EntityTypeAttribute    EntityType = "Attribute"
)

// RelationType names one type carried by a relationship.
type RelationType string

// Relation types declared by the bundled schema.
const (
	RelationMemberOf         RelationType = "MEMBER_OF"
	RelationManagedBy        RelationType = "MANAGED_BY"
	RelationSings            RelationType = "SINGS"
	RelationReleased         RelationType = "RELEASED"
	RelationContains         RelationType = "CONTAINS"
	RelationWrote            RelationType = "WROTE"
	RelationProduced         RelationType = "PRODUCED"
	RelationHasGenre         RelationType = "HAS_GENRE"
	RelationHasOccupation    RelationType = "HAS_OCCUPATION"
	RelationSubunitOf        RelationType = "SUBUNIT_OF"
	RelationCollaboratedWith RelationType = "COLLABORATED_WITH"
	RelationRelatedTo        RelationType = "RELATED_TO"
)

// ParseRelationType normalizes free text ("member of", "Member-Of") into a
// RelationType.
func ParseRelationType(s string) RelationType {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return RelationType(strings.ToUpper(s))
}

// Entity represents a canonical node in the knowledge graph.
//
// Entities are immutable once stored; the graph store hands out shared
// pointers and callers must not modify them.
type Entity struct {
	ID         string     `json:"id" yaml:"id" mapstructure:"id"`
	Type       EntityType `json:"type" yaml:"type" mapstructure:"type"`
	Attributes Attributes `json:"attributes" yaml:"attributes" mapstructure:"attributes"`

	// SourceID is the raw identifier the entity was first ingested under.
	SourceID string `json:"source_id,omitempty" yaml:"source_id,omitempty" mapstructure:"source_id"`
}

// Validate checks if the Entity has all required fields set.
func (e *Entity) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if e.Type == "" {
		return ErrEmptyType
	}
	return nil
}

// Name returns the display name of the entity: the "name" or "title"
// attribute when present, otherwise the id.
func (e *Entity) Name() string {
	for _, key := range []string{"name", "title"} {
		if v, ok := e.Attributes.Get(key); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return e.ID
}

// Relationship is a directed edge between two canonical entities. A single
// edge exists per ordered pair and carries every relation type registered for
// that pair.
type Relationship struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Types      []RelationType `json:"types"`
	Attributes Attributes     `json:"attributes"`
	Confidence float64        `json:"confidence"`
	Method     string         `json:"method,omitempty"`
}

// Validate checks if the Relationship has all required fields set.
func (r *Relationship) Validate() error {
	if r.Source == "" || r.Target == "" {
		return ErrEmptyID
	}
	if len(r.Types) == 0 {
		return ErrEmptyRelation
	}
	return nil
}

// HasType reports whether the relationship carries t.
func (r *Relationship) HasType(t RelationType) bool {
	return slices.Contains(r.Types, t)
}

// Clone returns a deep copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	c := *r
	c.Types = slices.Clone(r.Types)
	c.Attributes = r.Attributes.Clone()
	return &c
}

// Provenance tells which extraction stage produced a candidate.
type Provenance string

const (
	ProvenanceExact     Provenance = "exact"
	ProvenanceAlias     Provenance = "alias"
	ProvenanceNGram     Provenance = "ngram"
	ProvenanceSubstring Provenance = "substring"
	ProvenanceNLU       Provenance = "nlu"
	ProvenanceSemantic  Provenance = "semantic"
	ProvenanceSeed      Provenance = "seed"
)

// Candidate is a query mention resolved to a canonical entity.
type Candidate struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Mention    string     `json:"mention"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence"`
}

// ContextKey is used for storing values in context.
type ContextKey string

const (
	// ContextKeyRequestID carries the request id assigned by the HTTP server.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyRequestSource tells whether a call came from the server or CLI.
	ContextKeyRequestSource ContextKey = "request_source"
)
