// Package semantic provides the optional semantic-search collaborator: an
// embedding index over the entities of a graph snapshot.
//
// Matches are suggestions. The extractor revalidates every returned id
// against the graph and drops matches below its score threshold.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/metrics"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Match is one semantic search hit.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Searcher ranks entity ids by similarity to a query.
type Searcher interface {
	SemanticSearch(ctx context.Context, query string, topK int) ([]Match, error)
}

// Index holds one vector per entity. It is safe for concurrent use; Sync
// embeds entities added since the last call.
type Index struct {
	embedder Embedder
	logger   *slog.Logger

	mu      sync.RWMutex
	version uint64
	vectors map[string][]float32
	order   []string
}

// NewIndex creates an empty index.
func NewIndex(e Embedder, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{embedder: e, logger: logger, vectors: make(map[string][]float32)}
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// Sync embeds every entity of snap that is not indexed yet.
func (ix *Index) Sync(ctx context.Context, snap *graph.Snapshot) error {
	ix.mu.RLock()
	upToDate := ix.version == snap.Version() && len(ix.order) > 0
	ix.mu.RUnlock()
	if upToDate {
		return nil
	}

	var ids, texts []string
	ix.mu.RLock()
	snap.Each(func(e *types.Entity) bool {
		if _, ok := ix.vectors[e.ID]; !ok {
			ids = append(ids, e.ID)
			texts = append(texts, entityText(e.Name(), string(e.Type), attributeValues(e)))
		}
		return true
	})
	ix.mu.RUnlock()

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed %d entities: %w", len(texts), err)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, id := range ids {
		if _, ok := ix.vectors[id]; !ok {
			ix.order = append(ix.order, id)
		}
		ix.vectors[id] = vectors[i]
	}
	ix.version = snap.Version()
	ix.logger.Debug("semantic index synced", "embedded", len(ids), "total", len(ix.order), "version", ix.version)
	return nil
}

// SemanticSearch implements Searcher.
func (ix *Index) SemanticSearch(ctx context.Context, query string, topK int) ([]Match, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}

	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.order))
	for _, id := range ix.order {
		matches = append(matches, Match{ID: id, Score: CosineSimilarity(vecs[0], ix.vectors[id])})
	}
	ix.mu.RUnlock()
	return TopK(matches, topK), nil
}

func attributeValues(e *types.Entity) []string {
	values := make([]string, 0, e.Attributes.Len())
	e.Attributes.Each(func(_, v string) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Guard applies a deadline to a Searcher and converts every failure into
// "no matches".
type Guard struct {
	s       Searcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewGuard wraps s. A non-positive timeout means three seconds.
func NewGuard(s Searcher, timeout time.Duration, logger *slog.Logger) *Guard {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{s: s, timeout: timeout, logger: logger}
}

// Enabled reports whether a searcher is configured.
func (g *Guard) Enabled() bool { return g != nil && g.s != nil }

// Search returns the top matches, or nil when the collaborator is
// unavailable, failing or slow.
func (g *Guard) Search(ctx context.Context, query string, topK int) []Match {
	if !g.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	matches, err := g.s.SemanticSearch(ctx, query, topK)
	switch {
	case err == nil:
		metrics.CollaboratorCalls.WithLabelValues("semantic", "ok").Inc()
		return matches
	case errors.Is(err, context.DeadlineExceeded):
		metrics.CollaboratorCalls.WithLabelValues("semantic", "timeout").Inc()
		g.logger.Warn("semantic search timed out, continuing without matches",
			"timeout", g.timeout, "error", fmt.Errorf("%w: %v", types.ErrCollaboratorTimeout, err))
	default:
		metrics.CollaboratorCalls.WithLabelValues("semantic", "error").Inc()
		g.logger.Warn("semantic search failed, continuing without matches", "error", err)
	}
	return nil
}
