package semantic

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// letterEmbedder maps a text to its letter histogram, so texts sharing
// letters are similar.
type letterEmbedder struct {
	calls  atomic.Int32
	inputs atomic.Int32
	err    error
}

func (l *letterEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	l.calls.Add(1)
	l.inputs.Add(int32(len(texts)))
	if l.err != nil {
		return nil, l.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 26)
		for _, r := range strings.ToLower(t) {
			if r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

type fakeEmbeddings struct {
	requests []openai.EmbeddingRequest
}

func (f *fakeEmbeddings) CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	f.requests = append(f.requests, req)
	inputs := req.Input.([]string)
	resp := openai.EmbeddingResponse{}
	// reply out of order to exercise index mapping
	for i := len(inputs) - 1; i >= 0; i-- {
		resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: []float32{float32(len(inputs[i]))}})
	}
	return resp, nil
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"different lengths", []float32{1, 2, 3}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTopK(t *testing.T) {
	items := []Match{{"a", 0.1}, {"b", 0.9}, {"c", 0.5}, {"d", 0.9}, {"e", 0.3}}
	assert.Equal(t, []Match{{"b", 0.9}, {"d", 0.9}, {"c", 0.5}}, TopK(items, 3))
	assert.Len(t, TopK(items, 10), 5)
	assert.Nil(t, TopK(items, 0))
	assert.Nil(t, TopK(nil, 3))
}

func newGraph(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	for _, e := range []struct {
		id  string
		typ types.EntityType
	}{
		{"BLACKPINK", types.EntityTypeGroup},
		{"BIGBANG", types.EntityTypeGroup},
		{"YG Entertainment", types.EntityTypeOrganization},
	} {
		_, _, err := s.AddEntity(e.id, e.typ, types.NewAttributes("name", e.id))
		require.NoError(t, err)
	}
	return s
}

func TestIndexSyncAndSearch(t *testing.T) {
	s := newGraph(t)
	emb := &letterEmbedder{}
	ix := NewIndex(emb, nil)

	require.NoError(t, ix.Sync(context.Background(), s.Snapshot()))
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, int32(3), emb.inputs.Load())

	// same version, nothing to do
	require.NoError(t, ix.Sync(context.Background(), s.Snapshot()))
	assert.Equal(t, int32(1), emb.calls.Load())

	_, _, err := s.AddEntity("2NE1", types.EntityTypeGroup, types.NewAttributes("name", "2NE1"))
	require.NoError(t, err)
	require.NoError(t, ix.Sync(context.Background(), s.Snapshot()))
	assert.Equal(t, 4, ix.Len())
	assert.Equal(t, int32(4), emb.inputs.Load(), "only the new entity is embedded")

	matches, err := ix.SemanticSearch(context.Background(), "blackpink group", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "BLACKPINK", matches[0].ID)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.LessOrEqual(t, matches[0].Score, 1.0+1e-9)
}

func TestIndexSyncError(t *testing.T) {
	ix := NewIndex(&letterEmbedder{err: errors.New("down")}, nil)
	err := ix.Sync(context.Background(), newGraph(t).Snapshot())
	assert.ErrorContains(t, err, "down")
	assert.Equal(t, 0, ix.Len())
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	client := &fakeEmbeddings{}
	e, err := NewOpenAIEmbedder(config.EmbeddingConfig{Dimensions: 8}, client)
	require.NoError(t, err)
	e.batchSize = 2

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vecs)
	require.Len(t, client.requests, 2)
	assert.Equal(t, openai.SmallEmbedding3, client.requests[0].Model)
	assert.Equal(t, 8, client.requests[0].Dimensions)

	_, err = NewOpenAIEmbedder(config.EmbeddingConfig{}, nil)
	assert.Error(t, err)
}

func TestCircuitBreakerEmbedder(t *testing.T) {
	emb := &letterEmbedder{err: errors.New("boom")}
	cfg := config.CircuitBreakerConfig{Enabled: true, MaxRequests: 1, Interval: 60, Timeout: 60, ReadyToTripRatio: 0.5}
	cb := NewCircuitBreakerEmbedder(emb, cfg, nil, "embed-test")
	for i := 0; i < 5; i++ {
		_, err := cb.Embed(context.Background(), []string{"x"})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), emb.calls.Load())
}

func TestGuard(t *testing.T) {
	var g *Guard
	assert.Nil(t, g.Search(context.Background(), "q", 3))

	ix := NewIndex(&letterEmbedder{}, nil)
	require.NoError(t, ix.Sync(context.Background(), newGraph(t).Snapshot()))
	matches := NewGuard(ix, time.Second, nil).Search(context.Background(), "bigbang", 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "BIGBANG", matches[0].ID)
	assert.False(t, math.IsNaN(matches[0].Score))

	failing := NewGuard(NewIndex(&letterEmbedder{err: errors.New("down")}, nil), time.Second, nil)
	assert.Nil(t, failing.Search(context.Background(), "q", 3))
}
