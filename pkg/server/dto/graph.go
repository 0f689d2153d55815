package dto

import (
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// EntityResponse is an entity with its one-hop neighborhood.
type EntityResponse struct {
	Entity    *types.Entity        `json:"entity"`
	Name      string               `json:"name"`
	Neighbors []traversal.Neighbor `json:"neighbors"`
}

// SearchResponse lists ranked entity matches.
type SearchResponse struct {
	Query   string               `json:"query"`
	Results []graph.SearchResult `json:"results"`
}

// NeighborsResponse lists typed neighbors of an entity.
type NeighborsResponse struct {
	ID        string               `json:"id"`
	Direction traversal.Direction  `json:"direction"`
	Neighbors []traversal.Neighbor `json:"neighbors"`
}

// PathsRequest is bound from the query string of GET /paths.
type PathsRequest struct {
	Source    string   `form:"source"`
	Target    string   `form:"target"`
	MaxHops   int      `form:"max_hops"`
	Relations []string `form:"relation"`
	Direction string   `form:"direction"`
	All       bool     `form:"all"`
	Limit     int      `form:"limit"`
}

// Validate performs validation on PathsRequest
func (r *PathsRequest) Validate() error {
	if r.Source == "" || r.Target == "" {
		return ErrMissingEndpoint
	}
	if r.MaxHops < 0 || r.MaxHops > MaxHops {
		return ErrInvalidHops
	}
	return nil
}

// PathResponse is one path with its typed hops.
type PathResponse struct {
	Nodes []string        `json:"nodes"`
	Hops  []traversal.Hop `json:"hops"`
}

// PathsResponse lists paths shortest first.
type PathsResponse struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Paths  []PathResponse `json:"paths"`
}
