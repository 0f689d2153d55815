package graph

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// Wildcard matches any entity type in a relation rule.
const Wildcard = "*"

// RelationRule allows a relation from any of Source to any of Target.
type RelationRule struct {
	Source []string `yaml:"source"`
	Target []string `yaml:"target"`
}

// Schema holds the closed set of entity types and the relation validity table.
type Schema struct {
	EntityTypes     []types.EntityType                    `yaml:"entity_types"`
	StrictRelations bool                                  `yaml:"strict_relations"`
	Relations       map[types.RelationType][]RelationRule `yaml:"relations"`
}

// DefaultSchema returns the bundled schema.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled schema is invalid: %v", err))
	}
	return s
}

// LoadSchema reads a schema file. An empty path yields the bundled schema.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and validates a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(s.EntityTypes) == 0 {
		return nil, fmt.Errorf("schema declares no entity types")
	}
	for rel, rules := range s.Relations {
		for _, r := range rules {
			for _, t := range slices.Concat(r.Source, r.Target) {
				if t != Wildcard && !s.HasEntityType(types.EntityType(t)) {
					return nil, fmt.Errorf("relation %s references undeclared type %q", rel, t)
				}
			}
		}
	}
	return &s, nil
}

// HasEntityType reports whether t is in the configured set.
func (s *Schema) HasEntityType(t types.EntityType) bool {
	return slices.Contains(s.EntityTypes, t)
}

// Allows reports whether a relation of type rel may connect an entity of
// type src to one of type tgt.
func (s *Schema) Allows(src types.EntityType, rel types.RelationType, tgt types.EntityType) bool {
	rules, ok := s.Relations[rel]
	if !ok {
		return !s.StrictRelations
	}
	for _, r := range rules {
		if matchesType(r.Source, src) && matchesType(r.Target, tgt) {
			return true
		}
	}
	return false
}

// RelationTypes lists the declared relation types in sorted order.
func (s *Schema) RelationTypes() []types.RelationType {
	out := make([]types.RelationType, 0, len(s.Relations))
	for rel := range s.Relations {
		out = append(out, rel)
	}
	slices.Sort(out)
	return out
}

func matchesType(allowed []string, t types.EntityType) bool {
	return slices.Contains(allowed, Wildcard) || slices.Contains(allowed, string(t))
}
