package graph

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Snapshot is an immutable view of the graph at one version. It is safe for
// concurrent use by any number of readers. Returned entities and
// relationships are shared and must not be modified.
type Snapshot struct {
	data    *graphData
	version uint64
	schema  *Schema
	norm    *Normalizer
}

// Version increases with every write that changed the graph.
func (s *Snapshot) Version() uint64 { return s.version }

// Schema returns the validity table the graph was built with.
func (s *Snapshot) Schema() *Schema { return s.schema }

// Normalizer returns the id normalizer the graph was built with.
func (s *Snapshot) Normalizer() *Normalizer { return s.norm }

// Len returns the number of canonical entities.
func (s *Snapshot) Len() int { return len(s.data.order) }

// Resolve maps a raw or canonical id to its canonical id: direct hit first,
// then the alias table, then the normalization key.
func (s *Snapshot) Resolve(raw string) (string, error) {
	if id, ok := s.data.resolve(s.norm, raw); ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrEntityNotFound, raw)
}

// Entity returns the entity stored under a canonical id.
func (s *Snapshot) Entity(id string) (*types.Entity, bool) {
	e, ok := s.data.entities[id]
	return e, ok
}

// GetEntity resolves raw and returns the entity.
func (s *Snapshot) GetEntity(raw string) (*types.Entity, error) {
	id, err := s.Resolve(raw)
	if err != nil {
		return nil, err
	}
	return s.data.entities[id], nil
}

// GetEntityType resolves raw and returns the entity type.
func (s *Snapshot) GetEntityType(raw string) (types.EntityType, error) {
	e, err := s.GetEntity(raw)
	if err != nil {
		return "", err
	}
	return e.Type, nil
}

// Each calls fn for every entity in insertion order until fn returns false.
func (s *Snapshot) Each(fn func(*types.Entity) bool) {
	for _, id := range s.data.order {
		if !fn(s.data.entities[id]) {
			return
		}
	}
}

// EntitiesByType returns the canonical ids of every entity of type t.
func (s *Snapshot) EntitiesByType(t types.EntityType) []string {
	return slices.Clone(s.data.byType[t])
}

// EachAlias calls fn for every registered alias in sorted alias order.
func (s *Snapshot) EachAlias(fn func(alias, id string) bool) {
	aliases := make([]string, 0, len(s.data.aliases))
	for a := range s.data.aliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		if !fn(a, s.data.aliases[a]) {
			return
		}
	}
}

// Outgoing returns the edges leaving id in insertion order.
func (s *Snapshot) Outgoing(id string) []*types.Relationship {
	targets := s.data.out[id]
	out := make([]*types.Relationship, 0, len(targets))
	for _, t := range targets {
		out = append(out, s.data.edges[edgeKey{source: id, target: t}])
	}
	return out
}

// Incoming returns the edges entering id in insertion order.
func (s *Snapshot) Incoming(id string) []*types.Relationship {
	sources := s.data.in[id]
	out := make([]*types.Relationship, 0, len(sources))
	for _, src := range sources {
		out = append(out, s.data.edges[edgeKey{source: src, target: id}])
	}
	return out
}

// Relationship returns the edge from source to target, if any.
func (s *Snapshot) Relationship(source, target string) (*types.Relationship, bool) {
	r, ok := s.data.edges[edgeKey{source: source, target: target}]
	return r, ok
}

// RelationshipCount returns the number of edges (ordered pairs).
func (s *Snapshot) RelationshipCount() int { return len(s.data.edgeOrder) }

// CheckInvariants verifies that every index points at an existing entity.
// A failure means the store is corrupt.
func (s *Snapshot) CheckInvariants() error {
	d := s.data
	missing := func(index, id string) error {
		return fmt.Errorf("%w: %s index references %q", types.ErrCorruptIndex, index, id)
	}
	if len(d.order) != len(d.entities) {
		return fmt.Errorf("%w: order has %d ids for %d entities", types.ErrCorruptIndex, len(d.order), len(d.entities))
	}
	for _, id := range d.order {
		if _, ok := d.entities[id]; !ok {
			return missing("order", id)
		}
	}
	for _, index := range []struct {
		name string
		m    map[string]string
	}{{"alias", d.aliases}, {"normalization", d.normIndex}, {"signature", d.signatures}} {
		for _, id := range index.m {
			if _, ok := d.entities[id]; !ok {
				return missing(index.name, id)
			}
		}
	}
	for t, ids := range d.byType {
		for _, id := range ids {
			e, ok := d.entities[id]
			if !ok {
				return missing("type", id)
			}
			if e.Type != t {
				return fmt.Errorf("%w: %q indexed as %s but typed %s", types.ErrCorruptIndex, id, t, e.Type)
			}
		}
	}
	for _, k := range d.edgeOrder {
		if _, ok := d.entities[k.source]; !ok {
			return missing("edge", k.source)
		}
		if _, ok := d.entities[k.target]; !ok {
			return missing("edge", k.target)
		}
		if _, ok := d.edges[k]; !ok {
			return fmt.Errorf("%w: edge %s->%s has no relationship", types.ErrCorruptIndex, k.source, k.target)
		}
	}
	return nil
}

// SearchResult is one ranked hit of SearchEntities.
type SearchResult struct {
	Entity *types.Entity `json:"entity"`
	Score  float64       `json:"score"`
}

// DefaultSearchLimit applies when SearchEntities is given a non-positive limit.
const DefaultSearchLimit = 10

// SearchEntities ranks canonical entities against text: an exact name or id
// match scores 1.0, a normalized match 0.9, and a substring match between
// 0.5 and 0.8 depending on how much of the name the text covers. An empty
// t matches every type.
func (s *Snapshot) SearchEntities(text string, t types.EntityType, limit int) []SearchResult {
	q := normalizeText(text)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	qNorm := s.norm.Normalize(text)

	var results []SearchResult
	s.Each(func(e *types.Entity) bool {
		if t != "" && e.Type != t {
			return true
		}
		if score := matchScore(q, qNorm, e, s.norm); score > 0 {
			results = append(results, SearchResult{Entity: e, Score: score})
		}
		return true
	})

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func matchScore(q, qNorm string, e *types.Entity, norm *Normalizer) float64 {
	name := normalizeText(e.Name())
	id := normalizeText(e.ID)
	switch {
	case name == q || id == q:
		return 1.0
	case norm.Normalize(e.ID) == qNorm || norm.Normalize(e.Name()) == qNorm:
		return 0.9
	}

	best := 0.0
	for _, candidate := range []string{name, id} {
		if candidate == "" || !strings.Contains(candidate, q) {
			continue
		}
		coverage := float64(len(q)) / float64(len(candidate))
		best = max(best, 0.5+0.29*coverage)
	}
	return best
}
