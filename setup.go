package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/alert"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/semantic"
	snapshotstore "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/storage/badger"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/telemetry"
)

// NewFromConfig builds an engine and its collaborators from the application
// configuration:
//
//   - the store uses the configured schema and id prefixes,
//   - the NLU collaborator is wrapped in retries and a circuit breaker,
//   - the semantic index embeds through a circuit breaker,
//   - a persisted snapshot is restored, then the data file is merged in.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	schema := graph.DefaultSchema()
	if cfg.Graph.SchemaPath != "" {
		s, err := graph.LoadSchema(cfg.Graph.SchemaPath)
		if err != nil {
			return nil, err
		}
		schema = s
	}
	lex := lexicon.Default()
	if cfg.Graph.LexiconPath != "" {
		l, err := lexicon.Load(cfg.Graph.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = l
	}
	prefixes := cfg.Graph.IDPrefixes
	if len(prefixes) == 0 {
		prefixes = lex.IDPrefixes
	}
	store := graph.NewStore(
		graph.WithSchema(schema),
		graph.WithIDPrefixes(prefixes),
		graph.WithLogger(logger.With("component", "graph")))

	alerter := alert.New(cfg.Alert, logger)
	opts := []Option{WithLexicon(lex)}

	if cfg.NLU.Enabled {
		u, err := nlu.NewOpenAIUnderstander(cfg.NLU, nlu.WithRelationTypes(schema.RelationTypes()))
		if err != nil {
			return nil, fmt.Errorf("failed to create nlu collaborator: %w", err)
		}
		retry := nlu.DefaultRetryConfig()
		retry.MaxRetries = cfg.NLU.MaxRetries
		opts = append(opts, WithUnderstander(
			nlu.NewCircuitBreaker(nlu.NewRetryUnderstander(u, retry, logger.With("component", "nlu")), cfg.CircuitBreaker, alerter, "nlu")))
	}

	if cfg.Semantic.Enabled {
		emb, err := semantic.NewOpenAIEmbedder(cfg.Embedding, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		guarded := semantic.NewCircuitBreakerEmbedder(emb, cfg.CircuitBreaker, alerter, "embedder")
		opts = append(opts, WithSemanticIndex(semantic.NewIndex(guarded, logger.With("component", "semantic"))))
	}

	// closers release what was opened here until the engine owns it
	var closers []func() error
	release := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to release resource", "error", err)
			}
		}
	}

	if cfg.Telemetry.ParquetPath != "" {
		audit, err := telemetry.NewQueryAudit(cfg.Telemetry.ParquetPath, 0)
		if err != nil {
			return nil, err
		}
		closers = append(closers, audit.Close)
		opts = append(opts, WithQueryAudit(audit))
	}

	if cfg.Graph.SnapshotDir != "" {
		st, err := snapshotstore.Open(snapshotstore.Config{
			Path:           cfg.Graph.SnapshotDir,
			SyncWrites:     true,
			GCDiscardRatio: 0.5,
			Logger:         logger.With("component", "snapshot"),
		})
		if err != nil {
			release()
			return nil, err
		}
		closers = append(closers, st.Close)
		opts = append(opts, WithSnapshotStore(st))
	}

	e, err := New(store, ConfigFrom(cfg), logger, opts...)
	if err != nil {
		release()
		return nil, err
	}

	if e.snapshots != nil {
		if _, err := e.Restore(ctx); err != nil && !errors.Is(err, snapshotstore.ErrNoSnapshot) {
			_ = e.Close()
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
	}
	if cfg.Graph.DataPath != "" {
		if _, err := e.IngestFile(ctx, cfg.Graph.DataPath); err != nil {
			_ = e.Close()
			return nil, err
		}
	}
	if err := e.loader.CheckInvariants(); err != nil {
		_ = e.Close()
		return nil, err
	}

	st := store.Stats()
	logger.Info("graph loaded",
		"entities", st.Entities,
		"relationships", st.Relationships,
		"aliases", st.Aliases,
		"version", st.Version)
	return e, nil
}
