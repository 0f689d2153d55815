// Package ingest applies exchange batches to a graph store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/metrics"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ItemError describes one rejected record.
type ItemError struct {
	Kind  string          `json:"kind"` // entity, relationship, alias
	Item  string          `json:"item"`
	Code  types.ErrorCode `json:"code,omitempty"`
	Error string          `json:"error"`
}

// Report counts the outcome of applying a batch.
type Report struct {
	EntitiesCreated      int         `json:"entities_created"`
	EntitiesMerged       int         `json:"entities_merged"`
	RelationshipsCreated int         `json:"relationships_created"`
	RelationshipsMerged  int         `json:"relationships_merged"`
	AliasesAdded         int         `json:"aliases_added"`
	Skipped              int         `json:"skipped"`
	Errors               []ItemError `json:"errors,omitempty"`
	Version              uint64      `json:"version"`
}

// Created returns the number of new entities and relationships.
func (r Report) Created() int { return r.EntitiesCreated + r.RelationshipsCreated }

// Merged returns the number of records folded into existing ones.
func (r Report) Merged() int { return r.EntitiesMerged + r.RelationshipsMerged }

// Loader applies batches to a store.
type Loader struct {
	store  *graph.Store
	logger *slog.Logger
}

// NewLoader creates a loader for store. A nil logger uses slog.Default().
func NewLoader(store *graph.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, logger: logger}
}

// Store returns the target store.
func (l *Loader) Store() *graph.Store { return l.store }

// Apply adds the entities, aliases and relationships of b in one store
// update, so readers see either none or all of it. Invalid records are
// skipped and reported; they never abort the batch.
func (l *Loader) Apply(ctx context.Context, b *types.Batch) (Report, error) {
	var rep Report
	before := l.store.Snapshot()
	seen := make(map[[2]string]bool)

	reject := func(kind, item string, err error) {
		rep.Skipped++
		rep.Errors = append(rep.Errors, ItemError{Kind: kind, Item: item, Code: types.CodeOf(err), Error: err.Error()})
		metrics.IngestedTotal.WithLabelValues(kind, "skipped").Inc()
	}

	err := l.store.Update(func(tx *graph.Txn) error {
		for _, e := range b.Entities {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, created, err := tx.AddEntity(e.ID, e.Type, e.Attributes)
			if err != nil {
				l.logger.Warn("Skipping entity", "id", e.ID, "type", e.Type, "error", err)
				reject("entity", e.ID, err)
				continue
			}
			if created {
				rep.EntitiesCreated++
				metrics.IngestedTotal.WithLabelValues("entity", "created").Inc()
			} else {
				rep.EntitiesMerged++
				metrics.IngestedTotal.WithLabelValues("entity", "merged").Inc()
				l.logger.Debug("Merged entity", "id", e.ID, "canonical_id", id)
			}
		}

		for _, a := range b.Aliases {
			if err := tx.AddAlias(a.Alias, a.ID); err != nil {
				l.logger.Warn("Skipping alias", "alias", a.Alias, "id", a.ID, "error", err)
				reject("alias", a.Alias, err)
				continue
			}
			rep.AliasesAdded++
			metrics.IngestedTotal.WithLabelValues("alias", "created").Inc()
		}

		for _, r := range b.Relationships {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := r.Source + "->" + r.Target
			if len(r.Types) == 0 {
				reject("relationship", item, types.ErrEmptyRelation)
				continue
			}
			for _, rel := range r.Types {
				out, err := tx.AddRelationship(r.Source, r.Target, rel, r.Attributes)
				if err != nil {
					reject("relationship", fmt.Sprintf("%s %s", item, rel), err)
					continue
				}
				pair := [2]string{out.Source, out.Target}
				_, existed := before.Relationship(out.Source, out.Target)
				if existed || seen[pair] {
					rep.RelationshipsMerged++
					metrics.IngestedTotal.WithLabelValues("relationship", "merged").Inc()
				} else {
					rep.RelationshipsCreated++
					metrics.IngestedTotal.WithLabelValues("relationship", "created").Inc()
				}
				seen[pair] = true
			}
		}
		return nil
	})

	snap := l.store.Snapshot()
	rep.Version = snap.Version()
	st := snap.Stats()
	metrics.GraphSize.WithLabelValues("entities").Set(float64(st.Entities))
	metrics.GraphSize.WithLabelValues("relationships").Set(float64(st.Relationships))
	metrics.GraphSize.WithLabelValues("aliases").Set(float64(st.Aliases))
	if err != nil {
		return rep, err
	}

	l.logger.Info("ingest finished",
		"entities_created", rep.EntitiesCreated,
		"entities_merged", rep.EntitiesMerged,
		"relationships_created", rep.RelationshipsCreated,
		"relationships_merged", rep.RelationshipsMerged,
		"aliases", rep.AliasesAdded,
		"skipped", rep.Skipped,
		"version", rep.Version)
	return rep, nil
}

// LoadFile decodes the JSON or YAML batch at path and applies it.
func (l *Loader) LoadFile(ctx context.Context, path string) (Report, error) {
	b, err := ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	return l.Apply(ctx, b)
}

// ReadFile decodes the batch at path, choosing the format from the extension.
func ReadFile(path string) (*types.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch %s: %w", path, err)
	}
	defer f.Close()

	b, err := types.DecodeBatch(f, types.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// CheckInvariants verifies the indices of the store's current snapshot.
// A failure is fatal: the store must not be used.
func (l *Loader) CheckInvariants() error {
	if err := l.store.Snapshot().CheckInvariants(); err != nil {
		if errors.Is(err, types.ErrCorruptIndex) {
			l.logger.Error("graph index is corrupt", "error", err)
		}
		return err
	}
	return nil
}
