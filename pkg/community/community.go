// Package community groups entities of a graph snapshot into communities
// with label propagation over the undirected projection of the graph.
package community

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// DefaultMaxIterations bounds label propagation.
const DefaultMaxIterations = 100

// Neighbor is one entry of the projection: an adjacent entity and the
// number of relation types linking the pair in either direction.
type Neighbor struct {
	ID        string
	EdgeCount int
}

// Community is one detected cluster.
type Community struct {
	ID int `json:"id"`
	// Label is the display name of the best connected member.
	Label   string                   `json:"label"`
	Members []string                 `json:"members"`
	Types   map[types.EntityType]int `json:"types"`
}

// Size returns the number of members.
func (c Community) Size() int { return len(c.Members) }

// Builder detects communities.
type Builder struct {
	maxIterations int
	minSize       int
	logger        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxIterations bounds the number of propagation rounds.
func WithMaxIterations(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxIterations = n
		}
	}
}

// WithMinSize drops communities smaller than n. The default is 2.
func WithMinSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minSize = n
		}
	}
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a community builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{maxIterations: DefaultMaxIterations, minSize: 2, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Detect returns the communities of snap, largest first.
func (b *Builder) Detect(snap *graph.Snapshot) []Community {
	projection := BuildProjection(snap)
	clusters := b.labelPropagation(projection)

	communities := make([]Community, 0, len(clusters))
	for _, members := range clusters {
		if len(members) < b.minSize {
			continue
		}
		c := Community{Members: members, Types: make(map[types.EntityType]int)}
		best, bestDegree := "", -1
		for _, id := range members {
			if e, ok := snap.Entity(id); ok {
				c.Types[e.Type]++
			}
			if d := degree(projection[id]); d > bestDegree || (d == bestDegree && id < best) {
				best, bestDegree = id, d
			}
		}
		c.Label = best
		if e, ok := snap.Entity(best); ok {
			c.Label = e.Name()
		}
		communities = append(communities, c)
	}

	slices.SortFunc(communities, func(x, y Community) int {
		if n := cmp.Compare(y.Size(), x.Size()); n != 0 {
			return n
		}
		return cmp.Compare(x.Members[0], y.Members[0])
	})
	for i := range communities {
		communities[i].ID = i + 1
	}
	b.logger.Debug("detected communities", "communities", len(communities), "entities", snap.Len())
	return communities
}

// BuildProjection builds the undirected neighbor projection of snap.
// Neighbor lists are sorted by id.
func BuildProjection(snap *graph.Snapshot) map[string][]Neighbor {
	weights := make(map[string]map[string]int)
	snap.Each(func(e *types.Entity) bool {
		weights[e.ID] = make(map[string]int)
		return true
	})
	snap.Each(func(e *types.Entity) bool {
		for _, r := range snap.Outgoing(e.ID) {
			if r.Source == r.Target {
				continue
			}
			weights[r.Source][r.Target] += len(r.Types)
			weights[r.Target][r.Source] += len(r.Types)
		}
		return true
	})

	projection := make(map[string][]Neighbor, len(weights))
	for id, nbs := range weights {
		list := make([]Neighbor, 0, len(nbs))
		for nb, w := range nbs {
			list = append(list, Neighbor{ID: nb, EdgeCount: w})
		}
		slices.SortFunc(list, func(a, b Neighbor) int { return cmp.Compare(a.ID, b.ID) })
		projection[id] = list
	}
	return projection
}

func degree(nbs []Neighbor) int {
	d := 0
	for _, n := range nbs {
		d += n.EdgeCount
	}
	return d
}
