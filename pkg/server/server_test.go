package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analyst "github.com/huynd2174/Social-Network-Analyst--sub000"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/server/dto"
	snapshotstore "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/storage/badger"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

func newTestServer(t *testing.T, opts ...analyst.Option) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, err := analyst.New(graph.NewStore(), nil, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	_, err = engine.IngestFile(t.Context(), "../../testdata/kpop.yaml")
	require.NoError(t, err)

	cfg := &config.Config{Server: config.ServerConfig{Host: "localhost", Port: 8080, Mode: gin.TestMode}}
	s := New(cfg, engine, nil)
	s.Setup()
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSetup(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.router)
	require.NotNil(t, s.server)
	assert.Equal(t, "localhost:8080", s.server.Addr)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/healthcheck", "/live", "/ready", "/health/detailed"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, s, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/reason", dto.ReasonRequest{Query: "Who are the members of BLACKPINK?"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "analyst_queries_total")
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodOptions, "/api/v1/reason", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestReason(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/reason", dto.ReasonRequest{Query: "Do Jennie and Lisa share the same organization?"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[types.ReasoningResult](t, w)
	assert.Equal(t, types.OutcomeFound, res.Outcome)
	assert.Equal(t, []string{"YG Entertainment"}, res.AnswerEntities)

	// a reasoning failure is still a result
	w = do(t, s, http.MethodPost, "/api/v1/reason", dto.ReasonRequest{Query: "How are Jennie and Jimin connected?"})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[types.ReasoningResult](t, w)
	assert.Equal(t, types.CodeNoPathFound, res.Error)
}

func TestReasonValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body any
	}{
		{"missing query", map[string]any{}},
		{"blank query", dto.ReasonRequest{Query: "   "}},
		{"hops out of range", dto.ReasonRequest{Query: "Who are the members of BLACKPINK?", Hops: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/reason", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", decode[dto.ErrorResponse](t, w).Error)
		})
	}
}

func TestReasonBatch(t *testing.T) {
	s := newTestServer(t)
	queries := []string{"Who are the members of BLACKPINK?", "Is Jennie a member of BLACKPINK?"}

	w := do(t, s, http.MethodPost, "/api/v1/reason/batch", dto.BatchReasonRequest{Queries: queries})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.BatchReasonResponse](t, w)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, queries[0], resp.Results[0].Query)
	assert.Equal(t, types.IntentMembership, resp.Results[1].Intent)

	w = do(t, s, http.MethodPost, "/api/v1/reason/batch", dto.BatchReasonRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntities(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/entities/"+url.PathEscape("YG"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	ent := decode[dto.EntityResponse](t, w)
	assert.Equal(t, "YG Entertainment", ent.Entity.ID)
	assert.Len(t, ent.Neighbors, 2)

	w = do(t, s, http.MethodGet, "/api/v1/entities/Nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.CodeEntityNotFound), decode[dto.ErrorResponse](t, w).Error)

	w = do(t, s, http.MethodGet, "/api/v1/entities?q=blackpink", nil)
	require.Equal(t, http.StatusOK, w.Code)
	search := decode[dto.SearchResponse](t, w)
	require.NotEmpty(t, search.Results)
	assert.Equal(t, "BLACKPINK", search.Results[0].Entity.ID)

	w = do(t, s, http.MethodGet, "/api/v1/entities", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNeighbors(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/entities/BLACKPINK/neighbors?direction=in&relation=member_of", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.NeighborsResponse](t, w)
	assert.Len(t, resp.Neighbors, 3)
	for _, nb := range resp.Neighbors {
		assert.Equal(t, types.RelationMemberOf, nb.Relation)
	}
}

func TestContext(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/entities/Jennie/context?depth=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ctx := decode[map[string]any](t, w)
	assert.EqualValues(t, 2, ctx["max_depth"])
}

func TestPaths(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/paths?source=Jennie&target=BIGBANG&max_hops=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.PathsResponse](t, w)
	require.Len(t, resp.Paths, 1)
	assert.Equal(t, []string{"Jennie", "BLACKPINK", "YG Entertainment", "BIGBANG"}, resp.Paths[0].Nodes)
	assert.Len(t, resp.Paths[0].Hops, 3)

	w = do(t, s, http.MethodGet, "/api/v1/paths?source=Jennie&target=Lisa&max_hops=3&all=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[dto.PathsResponse](t, w).Paths)

	w = do(t, s, http.MethodGet, "/api/v1/paths?source=Jennie&target=Jimin&max_hops=3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(types.CodeNoPathFound), decode[dto.ErrorResponse](t, w).Error)

	w = do(t, s, http.MethodGet, "/api/v1/paths?source=Jennie", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndCommunities(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[graph.Stats](t, w)
	assert.Equal(t, 12, stats.Entities)
	assert.Equal(t, 10, stats.Relationships)

	w = do(t, s, http.MethodGet, "/api/v1/communities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"members"`)
}

func TestIngest(t *testing.T) {
	s := newTestServer(t)
	batch := types.Batch{
		Entities: []types.EntityRecord{{ID: "Seventeen", Type: types.EntityTypeGroup}},
		Relationships: []types.RelationshipRecord{
			{Source: "BLACKPINK", Target: "Kill This Love", Types: []types.RelationType{types.RelationWrote}},
		},
	}

	w := do(t, s, http.MethodPost, "/api/v1/ingest", batch)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.IngestResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Report.EntitiesCreated)
	assert.Equal(t, 1, resp.Report.Skipped)
	require.Len(t, resp.Report.Errors, 1)
	assert.Equal(t, types.CodeInvalidRelationType, resp.Report.Errors[0].Code)

	w = do(t, s, http.MethodGet, "/api/v1/entities/Seventeen", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/ingest", types.Batch{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSnapshot(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/snapshot", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	st, err := snapshotstore.OpenInMemory()
	require.NoError(t, err)
	s = newTestServer(t, analyst.WithSnapshotStore(st))
	w = do(t, s, http.MethodPost, "/api/v1/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.SnapshotResponse](t, w)
	assert.Equal(t, 12, resp.Entities)
	assert.Equal(t, 1, resp.Aliases)
}
