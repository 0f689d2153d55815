package graph

import (
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Stats summarizes a snapshot.
type Stats struct {
	Version         uint64                     `json:"version"`
	Entities        int                        `json:"entities"`
	Relationships   int                        `json:"relationships"`
	TypedEdges      int                        `json:"typed_edges"`
	Aliases         int                        `json:"aliases"`
	EntitiesByType  map[types.EntityType]int   `json:"entities_by_type"`
	RelationsByType map[types.RelationType]int `json:"relations_by_type"`
	AverageDegree   float64                    `json:"average_degree"`
	Density         float64                    `json:"density"`
}

// Stats computes node, edge and alias counts plus degree figures.
func (s *Snapshot) Stats() Stats {
	d := s.data
	st := Stats{
		Version:         s.version,
		Entities:        len(d.order),
		Relationships:   len(d.edgeOrder),
		Aliases:         len(d.aliases),
		EntitiesByType:  make(map[types.EntityType]int, len(d.byType)),
		RelationsByType: make(map[types.RelationType]int),
	}
	for t, ids := range d.byType {
		st.EntitiesByType[t] = len(ids)
	}
	for _, k := range d.edgeOrder {
		for _, rel := range d.edges[k].Types {
			st.RelationsByType[rel]++
			st.TypedEdges++
		}
	}
	if n := float64(st.Entities); n > 0 {
		st.AverageDegree = 2 * float64(st.Relationships) / n
		if n > 1 {
			st.Density = float64(st.Relationships) / (n * (n - 1))
		}
	}
	return st
}

// Triple is one (source, relation, target) fact.
type Triple struct {
	Source   string             `json:"source"`
	Relation types.RelationType `json:"relation"`
	Target   string             `json:"target"`
}

// Triples flattens every edge into one triple per relation type, in edge
// insertion order.
func (s *Snapshot) Triples() []Triple {
	var out []Triple
	for _, k := range s.data.edgeOrder {
		for _, rel := range s.data.edges[k].Types {
			out = append(out, Triple{Source: k.source, Relation: rel, Target: k.target})
		}
	}
	return out
}

// Records exports the whole snapshot in the exchange schema.
func (s *Snapshot) Records() *types.Batch {
	b := &types.Batch{}
	s.Each(func(e *types.Entity) bool {
		b.Entities = append(b.Entities, entityRecord(e))
		return true
	})
	for _, k := range s.data.edgeOrder {
		b.Relationships = append(b.Relationships, relationshipRecord(s.data.edges[k]))
	}
	s.EachAlias(func(alias, id string) bool {
		b.Aliases = append(b.Aliases, types.AliasRecord{Alias: alias, ID: id})
		return true
	})
	return b
}

// Subgraph exports the given entities and the edges among them. Ids that do
// not resolve are skipped.
func (s *Snapshot) Subgraph(ids []string) *types.Batch {
	keep := make(map[string]bool, len(ids))
	b := &types.Batch{}
	for _, raw := range ids {
		id, err := s.Resolve(raw)
		if err != nil || keep[id] {
			continue
		}
		keep[id] = true
		b.Entities = append(b.Entities, entityRecord(s.data.entities[id]))
	}
	for _, k := range s.data.edgeOrder {
		if keep[k.source] && keep[k.target] {
			b.Relationships = append(b.Relationships, relationshipRecord(s.data.edges[k]))
		}
	}
	return b
}

func entityRecord(e *types.Entity) types.EntityRecord {
	return types.EntityRecord{ID: e.ID, Type: e.Type, Attributes: e.Attributes.Clone()}
}

func relationshipRecord(r *types.Relationship) types.RelationshipRecord {
	return types.RelationshipRecord{
		Source:     r.Source,
		Target:     r.Target,
		Types:      append([]types.RelationType(nil), r.Types...),
		Attributes: r.Attributes.Clone(),
	}
}
