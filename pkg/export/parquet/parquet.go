// Package parquet writes exchange batches as Parquet files for analytics.
package parquet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// File names written under the export directory.
const (
	EntitiesFile      = "entities.parquet"
	RelationshipsFile = "relationships.parquet"
	TriplesFile       = "triples.parquet"
	AliasesFile       = "aliases.parquet"
)

// EntityRow is the Parquet schema of an entity.
type EntityRow struct {
	ID         string `parquet:"id"`
	Name       string `parquet:"name"`
	EntityType string `parquet:"entity_type"`
	Attributes string `parquet:"attributes"` // JSON object
}

// RelationshipRow is the Parquet schema of a relationship.
type RelationshipRow struct {
	SourceID   string `parquet:"source_id"`
	TargetID   string `parquet:"target_id"`
	Types      string `parquet:"types"` // comma separated
	Attributes string `parquet:"attributes"`
}

// TripleRow is one (source, relation, target) fact.
type TripleRow struct {
	SourceID string `parquet:"source_id"`
	Relation string `parquet:"relation"`
	TargetID string `parquet:"target_id"`
}

// AliasRow maps an alias to an entity id.
type AliasRow struct {
	Alias string `parquet:"alias"`
	ID    string `parquet:"id"`
}

// Writer writes batches into a directory.
type Writer struct {
	baseDir string
}

// NewWriter creates baseDir when missing.
func NewWriter(baseDir string) (*Writer, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", baseDir, err)
	}
	return &Writer{baseDir: baseDir}, nil
}

// Dir returns the export directory.
func (w *Writer) Dir() string { return w.baseDir }

// Write writes entities, relationships, triples and aliases of b. It
// returns the paths written. Files for empty sections are skipped.
func (w *Writer) Write(b *types.Batch) ([]string, error) {
	var written []string

	if len(b.Entities) > 0 {
		rows := make([]EntityRow, 0, len(b.Entities))
		for _, e := range b.Entities {
			attrs, err := json.Marshal(e.Attributes)
			if err != nil {
				return written, fmt.Errorf("failed to marshal attributes of %s: %w", e.ID, err)
			}
			name := e.ID
			if v, ok := e.Attributes.Get("name"); ok && v != "" {
				name = v
			}
			rows = append(rows, EntityRow{ID: e.ID, Name: name, EntityType: string(e.Type), Attributes: string(attrs)})
		}
		path := filepath.Join(w.baseDir, EntitiesFile)
		if err := parquet.WriteFile(path, rows); err != nil {
			return written, fmt.Errorf("failed to write entities: %w", err)
		}
		written = append(written, path)
	}

	if len(b.Relationships) > 0 {
		rows := make([]RelationshipRow, 0, len(b.Relationships))
		var triples []TripleRow
		for _, r := range b.Relationships {
			attrs, err := json.Marshal(r.Attributes)
			if err != nil {
				return written, fmt.Errorf("failed to marshal attributes of %s->%s: %w", r.Source, r.Target, err)
			}
			names := make([]string, 0, len(r.Types))
			for _, rel := range r.Types {
				names = append(names, string(rel))
				triples = append(triples, TripleRow{SourceID: r.Source, Relation: string(rel), TargetID: r.Target})
			}
			rows = append(rows, RelationshipRow{
				SourceID:   r.Source,
				TargetID:   r.Target,
				Types:      strings.Join(names, ","),
				Attributes: string(attrs),
			})
		}
		path := filepath.Join(w.baseDir, RelationshipsFile)
		if err := parquet.WriteFile(path, rows); err != nil {
			return written, fmt.Errorf("failed to write relationships: %w", err)
		}
		written = append(written, path)

		path = filepath.Join(w.baseDir, TriplesFile)
		if err := parquet.WriteFile(path, triples); err != nil {
			return written, fmt.Errorf("failed to write triples: %w", err)
		}
		written = append(written, path)
	}

	if len(b.Aliases) > 0 {
		rows := make([]AliasRow, 0, len(b.Aliases))
		for _, a := range b.Aliases {
			rows = append(rows, AliasRow{Alias: a.Alias, ID: a.ID})
		}
		path := filepath.Join(w.baseDir, AliasesFile)
		if err := parquet.WriteFile(path, rows); err != nil {
			return written, fmt.Errorf("failed to write aliases: %w", err)
		}
		written = append(written, path)
	}

	return written, nil
}
