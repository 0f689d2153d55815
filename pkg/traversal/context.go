package traversal

import (
	"fmt"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ContextNode is an entity discovered by BoundedContext.
type ContextNode struct {
	ID        string             `json:"id"`
	Depth     int                `json:"depth"`
	Via       string             `json:"via"`
	Relation  types.RelationType `json:"relation"`
	Direction Direction          `json:"direction"`
}

// Context is the bounded neighborhood of an entity. It is shared through the
// context cache and must be treated as read-only.
type Context struct {
	Entity           *types.Entity         `json:"entity"`
	Relationships    []*types.Relationship `json:"relationships"`
	NeighborsByDepth map[int][]string      `json:"neighbors_by_depth"`
	Nodes            []ContextNode         `json:"nodes"`
	MaxDepth         int                   `json:"max_depth"`
}

// IDs returns every discovered id in discovery order, the root excluded.
func (c *Context) IDs() []string {
	ids := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// BoundedContext expands breadth-first from id over edges in both
// directions up to maxDepth. Each entity is reported once, tagged with the
// depth at which it was first reached.
func (e *Engine) BoundedContext(id string, maxDepth int) (*Context, error) {
	canonical, err := e.snap.Resolve(id)
	if err != nil {
		return nil, err
	}
	maxDepth = clampHops(maxDepth)

	if e.cache == nil {
		return e.expand(canonical, maxDepth), nil
	}
	key := fmt.Sprintf("%d|%s|%d", e.snap.Version(), canonical, maxDepth)
	return e.cache.GetOrCompute(key, func() (*Context, error) {
		return e.expand(canonical, maxDepth), nil
	})
}

func (e *Engine) expand(root string, maxDepth int) *Context {
	entity, _ := e.snap.Entity(root)
	c := &Context{
		Entity:           entity,
		Relationships:    append(e.snap.Outgoing(root), e.snap.Incoming(root)...),
		NeighborsByDepth: make(map[int][]string),
		MaxDepth:         maxDepth,
	}

	visited := map[string]bool{root: true}
	frontier := []string{root}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, n := range frontier {
			visit := func(r *types.Relationship, nb string, dir Direction) {
				if visited[nb] {
					return
				}
				visited[nb] = true
				next = append(next, nb)
				c.NeighborsByDepth[depth] = append(c.NeighborsByDepth[depth], nb)
				c.Nodes = append(c.Nodes, ContextNode{ID: nb, Depth: depth, Via: n, Relation: r.Types[0], Direction: dir})
			}
			for _, r := range e.snap.Outgoing(n) {
				visit(r, r.Target, Out)
			}
			for _, r := range e.snap.Incoming(n) {
				visit(r, r.Source, In)
			}
		}
		frontier = next
	}
	return c
}
