// Package neo4j loads exchange batches into a Neo4j database.
//
// Entities become (:Entity:<Type> {id}) nodes carrying their attributes as
// properties, relationships become one typed edge per relation type, and
// aliases are collected into the node's aliases list. All writes use
// UNWIND ... MERGE so an export can be repeated safely.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// DefaultBatchSize is the number of records sent per UNWIND statement.
const DefaultBatchSize = 500

// Statement is one parameterized Cypher write.
type Statement struct {
	Query  string
	Params map[string]any
}

// Report counts what an export sent.
type Report struct {
	Entities      int           `json:"entities"`
	Relationships int           `json:"relationships"`
	Aliases       int           `json:"aliases"`
	Statements    int           `json:"statements"`
	Duration      time.Duration `json:"duration"`
}

// Exporter writes batches into Neo4j.
type Exporter struct {
	client    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    *slog.Logger
}

// New creates an exporter for the configured database. The connection is
// not checked until VerifyConnectivity or Export.
func New(cfg config.Neo4jConfig, logger *slog.Logger) (*Exporter, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Exporter{client: client, database: database, batchSize: batchSize, logger: logger}, nil
}

// VerifyConnectivity checks if the driver can connect to the database.
func (x *Exporter) VerifyConnectivity(ctx context.Context) error {
	return x.client.VerifyConnectivity(ctx)
}

// Close closes the driver.
func (x *Exporter) Close(ctx context.Context) error {
	return x.client.Close(ctx)
}

// Export creates the id constraint and merges b into the database.
func (x *Exporter) Export(ctx context.Context, b *types.Batch) (Report, error) {
	start := time.Now()
	session := x.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: x.database})
	defer session.Close(ctx)

	for _, q := range Constraints() {
		if _, err := session.Run(ctx, q, nil); err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "An equivalent") {
				return Report{}, fmt.Errorf("failed to create constraint: %w", err)
			}
		}
	}

	stmts := Statements(b, x.batchSize)
	for i, st := range stmts {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, st.Query, st.Params)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return Report{}, fmt.Errorf("failed to run export statement %d of %d: %w", i+1, len(stmts), err)
		}
	}

	r := Report{
		Entities:      len(b.Entities),
		Relationships: len(b.Relationships),
		Aliases:       len(b.Aliases),
		Statements:    len(stmts),
		Duration:      time.Since(start),
	}
	x.logger.Info("exported graph to neo4j",
		"database", x.database,
		"entities", r.Entities,
		"relationships", r.Relationships,
		"statements", r.Statements,
		"duration", r.Duration)
	return r, nil
}

// Constraints returns the schema statements run before an export.
func Constraints() []string {
	return []string{
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE",
	}
}

// Statements builds the writes for b: entities grouped by type, then
// relationships grouped by relation type, then aliases, each chunked to
// batchSize rows.
func Statements(b *types.Batch, batchSize int) []Statement {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var out []Statement

	entityRows := make(map[types.EntityType][]map[string]any)
	var entityOrder []types.EntityType
	for _, e := range b.Entities {
		if _, ok := entityRows[e.Type]; !ok {
			entityOrder = append(entityOrder, e.Type)
		}
		entityRows[e.Type] = append(entityRows[e.Type], map[string]any{
			"id":         e.ID,
			"properties": properties(e.Attributes, "id", "type", "aliases"),
		})
	}
	for _, t := range entityOrder {
		query := fmt.Sprintf(`
			UNWIND $rows AS row
			MERGE (n:Entity {id: row.id})
			SET n:%s
			SET n += row.properties
			SET n.type = $type
		`, Identifier(string(t)))
		for _, rows := range chunk(entityRows[t], batchSize) {
			out = append(out, Statement{Query: query, Params: map[string]any{"rows": rows, "type": string(t)}})
		}
	}

	relRows := make(map[types.RelationType][]map[string]any)
	var relOrder []types.RelationType
	for _, r := range b.Relationships {
		for _, rel := range r.Types {
			if _, ok := relRows[rel]; !ok {
				relOrder = append(relOrder, rel)
			}
			relRows[rel] = append(relRows[rel], map[string]any{
				"source":     r.Source,
				"target":     r.Target,
				"properties": properties(r.Attributes),
			})
		}
	}
	for _, rel := range relOrder {
		query := fmt.Sprintf(`
			UNWIND $rows AS row
			MATCH (s:Entity {id: row.source})
			MATCH (t:Entity {id: row.target})
			MERGE (s)-[r:%s]->(t)
			SET r += row.properties
		`, Identifier(string(rel)))
		for _, rows := range chunk(relRows[rel], batchSize) {
			out = append(out, Statement{Query: query, Params: map[string]any{"rows": rows}})
		}
	}

	if len(b.Aliases) > 0 {
		rows := make([]map[string]any, 0, len(b.Aliases))
		for _, a := range b.Aliases {
			rows = append(rows, map[string]any{"alias": a.Alias, "id": a.ID})
		}
		query := `
			UNWIND $rows AS row
			MATCH (n:Entity {id: row.id})
			WITH n, row WHERE NOT row.alias IN coalesce(n.aliases, [])
			SET n.aliases = coalesce(n.aliases, []) + row.alias
		`
		for _, c := range chunk(rows, batchSize) {
			out = append(out, Statement{Query: query, Params: map[string]any{"rows": c}})
		}
	}
	return out
}

// Identifier quotes s as a Cypher label or relationship type. Plain
// identifiers are returned unchanged.
func Identifier(s string) string {
	plain := s != ""
	for i, r := range s {
		if !(r == '_' || r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || i > 0 && r >= '0' && r <= '9') {
			plain = false
			break
		}
	}
	if plain {
		return s
	}
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// properties converts attributes to a property map without the reserved keys.
func properties(a types.Attributes, reserved ...string) map[string]any {
	props := make(map[string]any, a.Len())
	a.Each(func(k, v string) bool {
		if !slices.Contains(reserved, k) {
			props[k] = v
		}
		return true
	})
	return props
}

func chunk[T any](rows []T, size int) [][]T {
	var out [][]T
	for len(rows) > size {
		out = append(out, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}
