package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server/dto"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// GraphHandler serves read-only graph lookups. Every request works on the
// snapshot current when it arrived.
type GraphHandler struct {
	engine *analyst.Engine
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(e *analyst.Engine) *GraphHandler {
	return &GraphHandler{engine: e}
}

// GetEntity handles GET /api/v1/entities/:id
func (h *GraphHandler) GetEntity(c *gin.Context) {
	tr := h.engine.Traversal()
	e, err := tr.Snapshot().GetEntity(c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	nbs, err := tr.Neighbors(e.ID, nil, traversal.Both)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EntityResponse{Entity: e, Name: e.Name(), Neighbors: nbs})
}

// SearchEntities handles GET /api/v1/entities?q=&type=&limit=
func (h *GraphHandler) SearchEntities(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		writeError(c, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}
	limit := queryInt(c, "limit", graph.DefaultSearchLimit)
	limit = min(limit, dto.MaxSearchResults)

	results := h.engine.Store().SearchEntities(q, types.EntityType(c.Query("type")), limit)
	if results == nil {
		results = []graph.SearchResult{}
	}
	c.JSON(http.StatusOK, dto.SearchResponse{Query: q, Results: results})
}

// Neighbors handles GET /api/v1/entities/:id/neighbors?relation=&direction=
func (h *GraphHandler) Neighbors(c *gin.Context) {
	dir := traversal.ParseDirection(c.DefaultQuery("direction", string(traversal.Both)))
	filter := relationFilter(c.QueryArray("relation"))

	tr := h.engine.Traversal()
	id, err := tr.Snapshot().Resolve(c.Param("id"))
	if err != nil {
		writeEngineError(c, err)
		return
	}
	nbs, err := tr.Neighbors(id, filter, dir)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NeighborsResponse{ID: id, Direction: dir, Neighbors: nbs})
}

// Context handles GET /api/v1/entities/:id/context?depth=
func (h *GraphHandler) Context(c *gin.Context) {
	depth := queryInt(c, "depth", 2)
	ctx, err := h.engine.Traversal().BoundedContext(c.Param("id"), depth)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctx)
}

// Paths handles GET /api/v1/paths. With all=true every simple path up to
// the limit is returned, otherwise only a shortest one.
func (h *GraphHandler) Paths(c *gin.Context) {
	var req dto.PathsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	opts := []traversal.PathOption{traversal.WithDirection(traversal.ParseDirection(req.Direction))}
	if rels := relationFilter(req.Relations); len(rels) > 0 {
		opts = append(opts, traversal.WithRelations(rels...))
	}

	tr := h.engine.Traversal()
	var paths []traversal.Path
	if req.All {
		found, err := tr.AllSimplePaths(req.Source, req.Target, req.MaxHops, append(opts, traversal.WithPathLimit(req.Limit))...)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		paths = found
	} else {
		p, err := tr.ShortestPath(req.Source, req.Target, req.MaxHops, opts...)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		paths = []traversal.Path{p}
	}

	resp := dto.PathsResponse{Source: paths[0][0], Target: paths[0][len(paths[0])-1]}
	for _, p := range paths {
		resp.Paths = append(resp.Paths, dto.PathResponse{Nodes: p, Hops: tr.PathDetails(p)})
	}
	c.JSON(http.StatusOK, resp)
}

// Stats handles GET /api/v1/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Store().Stats())
}

// Communities handles GET /api/v1/communities
func (h *GraphHandler) Communities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"communities": h.engine.Communities()})
}

func relationFilter(raw []string) []types.RelationType {
	var out []types.RelationType
	for _, r := range raw {
		if rt := types.ParseRelationType(r); rt != "" {
			out = append(out, rt)
		}
	}
	return out
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
