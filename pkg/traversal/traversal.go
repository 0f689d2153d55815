package traversal

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Traversal limits.
const (
	// DefaultMaxHops is used when a non-positive hop bound is given.
	DefaultMaxHops = 3

	// MaxHopLimit is the largest hop or depth bound accepted.
	MaxHopLimit = 6

	// DefaultPathLimit caps the number of paths AllSimplePaths enumerates.
	DefaultPathLimit = 100
)

// Direction selects which edges of a node are followed.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

// ParseDirection maps "out", "in" or "both" to a Direction. Anything else is Both.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case Out, In:
		return Direction(s)
	default:
		return Both
	}
}

// Neighbor is one (neighbor, relation type) tuple. A multi-typed edge yields
// one Neighbor per type.
type Neighbor struct {
	ID        string             `json:"id"`
	Relation  types.RelationType `json:"relation"`
	Direction Direction          `json:"direction"`
}

// Path is an ordered list of canonical ids from source to target.
type Path []string

// Hops returns the number of edges in the path.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Hop describes one edge of a path.
type Hop struct {
	From      string               `json:"from"`
	To        string               `json:"to"`
	Relations []types.RelationType `json:"relations"`
	Direction Direction            `json:"direction"`
}

// Engine runs bounded graph algorithms over one snapshot.
type Engine struct {
	snap   *graph.Snapshot
	cache  *ContextCache
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache shares a bounded-context cache between engines.
func WithCache(c *ContextCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine over snap.
func New(snap *graph.Snapshot, opts ...EngineOption) *Engine {
	e := &Engine{snap: snap, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the graph view the engine reads.
func (e *Engine) Snapshot() *graph.Snapshot { return e.snap }

// Neighbors lists the relation tuples around id. A nil filter accepts every
// relation type. Both returns the Out tuples followed by the In tuples.
func (e *Engine) Neighbors(id string, filter []types.RelationType, dir Direction) ([]Neighbor, error) {
	canonical, err := e.snap.Resolve(id)
	if err != nil {
		return nil, err
	}

	var out []Neighbor
	if dir == Out || dir == Both {
		for _, r := range e.snap.Outgoing(canonical) {
			for _, t := range r.Types {
				if accepts(filter, t) {
					out = append(out, Neighbor{ID: r.Target, Relation: t, Direction: Out})
				}
			}
		}
	}
	if dir == In || dir == Both {
		for _, r := range e.snap.Incoming(canonical) {
			for _, t := range r.Types {
				if accepts(filter, t) {
					out = append(out, Neighbor{ID: r.Source, Relation: t, Direction: In})
				}
			}
		}
	}
	return out, nil
}

// NeighborIDs returns the distinct neighbor ids of id in edge order.
func (e *Engine) NeighborIDs(id string, filter []types.RelationType, dir Direction) ([]string, error) {
	nbs, err := e.Neighbors(id, filter, dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(nbs))
	ids := make([]string, 0, len(nbs))
	for _, n := range nbs {
		if !seen[n.ID] {
			seen[n.ID] = true
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

// PathOptions narrows path searches.
type PathOptions struct {
	Direction Direction
	Relations []types.RelationType
	Limit     int
}

// PathOption is a functional option for path searches.
type PathOption func(*PathOptions)

// WithDirection restricts paths to follow edges in one direction.
func WithDirection(d Direction) PathOption {
	return func(o *PathOptions) { o.Direction = d }
}

// WithRelations restricts paths to the given relation types.
func WithRelations(rels ...types.RelationType) PathOption {
	return func(o *PathOptions) { o.Relations = rels }
}

// WithPathLimit caps the number of enumerated paths.
//
// If n <= 0, uses default (100).
func WithPathLimit(n int) PathOption {
	return func(o *PathOptions) {
		if n <= 0 {
			n = DefaultPathLimit
		}
		o.Limit = n
	}
}

func buildPathOptions(opts []PathOption) PathOptions {
	o := PathOptions{Direction: Both, Limit: DefaultPathLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ShortestPath finds a minimum-hop path from source to target within maxHops.
// It returns types.ErrNoPathFound when none exists.
func (e *Engine) ShortestPath(source, target string, maxHops int, opts ...PathOption) (Path, error) {
	src, tgt, err := e.endpoints(source, target)
	if err != nil {
		return nil, err
	}
	o := buildPathOptions(opts)
	maxHops = clampHops(maxHops)

	if src == tgt {
		return Path{src}, nil
	}

	prev := map[string]string{src: ""}
	frontier := []string{src}
	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, n := range frontier {
			for _, nb := range e.adjacent(n, o) {
				if _, seen := prev[nb]; seen {
					continue
				}
				prev[nb] = n
				if nb == tgt {
					return backtrack(prev, tgt), nil
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return nil, fmt.Errorf("%w: %s -> %s within %d hops", types.ErrNoPathFound, src, tgt, maxHops)
}

// AllSimplePaths enumerates paths without repeated nodes from source to
// target with at most maxHops edges, shortest first. Enumeration stops at the
// path limit.
func (e *Engine) AllSimplePaths(source, target string, maxHops int, opts ...PathOption) ([]Path, error) {
	src, tgt, err := e.endpoints(source, target)
	if err != nil {
		return nil, err
	}
	o := buildPathOptions(opts)
	maxHops = clampHops(maxHops)

	if src == tgt {
		return []Path{{src}}, nil
	}

	var paths []Path
	current := Path{src}
	onPath := map[string]bool{src: true}

	var walk func(n string)
	walk = func(n string) {
		if len(paths) >= o.Limit {
			return
		}
		if n == tgt {
			paths = append(paths, slices.Clone(current))
			return
		}
		if current.Hops() >= maxHops {
			return
		}
		for _, nb := range e.adjacent(n, o) {
			if onPath[nb] {
				continue
			}
			onPath[nb] = true
			current = append(current, nb)
			walk(nb)
			current = current[:len(current)-1]
			onPath[nb] = false
		}
	}
	walk(src)

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s within %d hops", types.ErrNoPathFound, src, tgt, maxHops)
	}
	slices.SortStableFunc(paths, func(a, b Path) int { return a.Hops() - b.Hops() })
	return paths, nil
}

// PathDetails expands a path into its edges with every relation type each
// edge carries.
func (e *Engine) PathDetails(p Path) []Hop {
	hops := make([]Hop, 0, p.Hops())
	for i := 0; i+1 < len(p); i++ {
		from, to := p[i], p[i+1]
		if r, ok := e.snap.Relationship(from, to); ok {
			hops = append(hops, Hop{From: from, To: to, Relations: slices.Clone(r.Types), Direction: Out})
			continue
		}
		if r, ok := e.snap.Relationship(to, from); ok {
			hops = append(hops, Hop{From: from, To: to, Relations: slices.Clone(r.Types), Direction: In})
		}
	}
	return hops
}

func (e *Engine) endpoints(source, target string) (string, string, error) {
	src, err := e.snap.Resolve(source)
	if err != nil {
		return "", "", err
	}
	tgt, err := e.snap.Resolve(target)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// adjacent returns the distinct ids reachable from n in one hop under o.
func (e *Engine) adjacent(n string, o PathOptions) []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(r *types.Relationship, id string) {
		if seen[id] || !acceptsAny(o.Relations, r.Types) {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if o.Direction == Out || o.Direction == Both {
		for _, r := range e.snap.Outgoing(n) {
			add(r, r.Target)
		}
	}
	if o.Direction == In || o.Direction == Both {
		for _, r := range e.snap.Incoming(n) {
			add(r, r.Source)
		}
	}
	return ids
}

func backtrack(prev map[string]string, tgt string) Path {
	var p Path
	for n := tgt; n != ""; n = prev[n] {
		p = append(p, n)
	}
	slices.Reverse(p)
	return p
}

func accepts(filter []types.RelationType, t types.RelationType) bool {
	return len(filter) == 0 || slices.Contains(filter, t)
}

func acceptsAny(filter []types.RelationType, ts []types.RelationType) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range ts {
		if slices.Contains(filter, t) {
			return true
		}
	}
	return false
}

// clampHops bounds a hop or depth argument to [1, MaxHopLimit].
func clampHops(h int) int {
	if h <= 0 {
		return DefaultMaxHops
	}
	return min(h, MaxHopLimit)
}
