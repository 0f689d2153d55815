package graph

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Store holds canonical entities and multi-typed relationships.
//
// Readers obtain an immutable Snapshot; writers are serialized by the store
// and copy the working data on the first write after a snapshot has been
// handed out, so readers keep their pre-update view until they ask again.
type Store struct {
	mu      sync.Mutex
	data    *graphData
	shared  bool
	version uint64
	current atomic.Pointer[Snapshot]

	schema *Schema
	norm   *Normalizer
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSchema sets the entity type set and relation validity table.
func WithSchema(schema *Schema) Option {
	return func(s *Store) {
		if schema != nil {
			s.schema = schema
		}
	}
}

// WithIDPrefixes sets the prefixes stripped during id normalization.
func WithIDPrefixes(prefixes []string) Option {
	return func(s *Store) {
		s.norm = NewNormalizer(prefixes)
	}
}

// WithLogger sets the logger used for rejected writes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data:   newGraphData(),
		schema: DefaultSchema(),
		norm:   defaultNormalizer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current immutable view of the graph.
func (s *Store) Snapshot() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	snap := &Snapshot{data: s.data, version: s.version, schema: s.schema, norm: s.norm}
	s.shared = true
	s.current.Store(snap)
	return snap
}

// Schema returns the validity table used by the store.
func (s *Store) Schema() *Schema { return s.schema }

// Update runs fn with exclusive write access. Changes become visible to new
// snapshots once fn returns nil. When fn returns an error every change it
// made is discarded and the store keeps its previous content and version.
func (s *Store) Update(fn func(tx *Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, prevShared := s.data, s.shared
	// the first write clones, leaving prev intact for a rollback
	s.shared = true

	tx := &Txn{store: s}
	if err := fn(tx); err != nil {
		s.data, s.shared = prev, prevShared
		return err
	}
	if !tx.changed {
		s.shared = prevShared
		return nil
	}
	s.version++
	s.current.Store(nil)
	return nil
}

// AddEntity adds an entity or merges it into an existing one with the same
// content signature. It returns the canonical id and whether a new entity
// was created.
func (s *Store) AddEntity(rawID string, t types.EntityType, attrs types.Attributes) (id string, created bool, err error) {
	err = s.Update(func(tx *Txn) error {
		id, created, err = tx.AddEntity(rawID, t, attrs)
		return err
	})
	return id, created, err
}

// AddRelationship adds a relation type between two entities, merging into
// the type-set of an existing edge for the same ordered pair.
func (s *Store) AddRelationship(rawSource, rawTarget string, rel types.RelationType, attrs types.Attributes) (*types.Relationship, error) {
	var out *types.Relationship
	err := s.Update(func(tx *Txn) error {
		var err error
		out, err = tx.AddRelationship(rawSource, rawTarget, rel, attrs)
		return err
	})
	return out, err
}

// AddAlias registers alias as an extra identifier of an existing entity.
func (s *Store) AddAlias(alias, target string) error {
	return s.Update(func(tx *Txn) error {
		return tx.AddAlias(alias, target)
	})
}

// Resolve maps a raw or canonical id to its canonical id.
func (s *Store) Resolve(raw string) (string, error) { return s.Snapshot().Resolve(raw) }

// GetEntity returns the entity a raw or canonical id resolves to.
func (s *Store) GetEntity(raw string) (*types.Entity, error) { return s.Snapshot().GetEntity(raw) }

// GetEntityType returns the type of the entity a raw or canonical id resolves to.
func (s *Store) GetEntityType(raw string) (types.EntityType, error) {
	return s.Snapshot().GetEntityType(raw)
}

// SearchEntities ranks entities by name match against text.
func (s *Store) SearchEntities(text string, t types.EntityType, limit int) []SearchResult {
	return s.Snapshot().SearchEntities(text, t, limit)
}

// Stats summarizes the current graph.
func (s *Store) Stats() Stats { return s.Snapshot().Stats() }

// Txn is a write handle valid only inside Store.Update.
type Txn struct {
	store   *Store
	changed bool
}

func (tx *Txn) data() *graphData {
	s := tx.store
	if s.shared {
		s.data = s.data.clone()
		s.shared = false
	}
	tx.changed = true
	return s.data
}

// AddEntity is the transactional form of Store.AddEntity.
func (tx *Txn) AddEntity(rawID string, t types.EntityType, attrs types.Attributes) (string, bool, error) {
	s := tx.store
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", false, types.ErrEmptyID
	}
	if !s.schema.HasEntityType(t) {
		return "", false, fmt.Errorf("%w: %q", types.ErrUnknownEntityType, t)
	}

	d := s.data
	norm := s.norm.Normalize(id)
	sig := ContentSignature(t, attrs, norm)

	if existing, ok := d.signatures[sig]; ok {
		if id == existing {
			return existing, false, nil
		}
		if cur, taken := d.direct(id); taken {
			if cur == existing {
				return existing, false, nil
			}
			return "", false, &types.ConflictError{ID: id}
		}
		d = tx.data()
		d.aliases[id] = existing
		if _, ok := d.normIndex[norm]; !ok {
			d.normIndex[norm] = existing
		}
		s.logger.Debug("Collapsed entity into existing signature", "raw_id", id, "canonical_id", existing)
		return existing, false, nil
	}

	if _, taken := d.direct(id); taken {
		return "", false, &types.ConflictError{ID: id}
	}

	d = tx.data()
	e := &types.Entity{ID: id, Type: t, Attributes: attrs.Clone(), SourceID: rawID}
	d.entities[id] = e
	d.order = append(d.order, id)
	d.byType[t] = append(d.byType[t], id)
	d.signatures[sig] = id
	if _, ok := d.normIndex[norm]; !ok {
		d.normIndex[norm] = id
	}
	return id, true, nil
}

// AddRelationship is the transactional form of Store.AddRelationship.
func (tx *Txn) AddRelationship(rawSource, rawTarget string, rel types.RelationType, attrs types.Attributes) (*types.Relationship, error) {
	s := tx.store
	if rel == "" {
		return nil, types.ErrEmptyRelation
	}

	src, ok := s.data.resolve(s.norm, rawSource)
	if !ok {
		err := &types.EndpointError{Endpoint: "source", ID: rawSource}
		s.logger.Warn("Skipping relationship", "source", rawSource, "target", rawTarget, "relation", rel, "error", err)
		return nil, err
	}
	tgt, ok := s.data.resolve(s.norm, rawTarget)
	if !ok {
		err := &types.EndpointError{Endpoint: "target", ID: rawTarget}
		s.logger.Warn("Skipping relationship", "source", rawSource, "target", rawTarget, "relation", rel, "error", err)
		return nil, err
	}

	srcType := s.data.entities[src].Type
	tgtType := s.data.entities[tgt].Type
	if !s.schema.Allows(srcType, rel, tgtType) {
		err := &types.RelationTypeError{SourceType: srcType, Relation: rel, TargetType: tgtType}
		s.logger.Warn("Skipping relationship", "source", src, "target", tgt, "relation", rel, "error", err)
		return nil, err
	}

	confidence, method := edgeProvenance(attrs)
	key := edgeKey{source: src, target: tgt}

	if existing, ok := s.data.edges[key]; ok {
		if existing.HasType(rel) && !addsAttributes(existing, attrs) && confidence <= existing.Confidence {
			return existing.Clone(), nil
		}
		merged := existing.Clone()
		if !merged.HasType(rel) {
			merged.Types = append(merged.Types, rel)
		}
		merged.Attributes.Merge(attrs)
		merged.Confidence = max(merged.Confidence, confidence)
		if merged.Method == "" {
			merged.Method = method
		}
		d := tx.data()
		d.edges[key] = merged
		return merged.Clone(), nil
	}

	r := &types.Relationship{
		Source:     src,
		Target:     tgt,
		Types:      []types.RelationType{rel},
		Attributes: attrs.Clone(),
		Confidence: confidence,
		Method:     method,
	}
	d := tx.data()
	d.edges[key] = r
	d.edgeOrder = append(d.edgeOrder, key)
	d.out[src] = append(d.out[src], tgt)
	d.in[tgt] = append(d.in[tgt], src)
	return r.Clone(), nil
}

// AddAlias is the transactional form of Store.AddAlias.
func (tx *Txn) AddAlias(alias, target string) error {
	s := tx.store
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return types.ErrEmptyID
	}
	canonical, ok := s.data.resolve(s.norm, target)
	if !ok {
		return fmt.Errorf("%w: alias target %q", types.ErrEntityNotFound, target)
	}
	if cur, taken := s.data.direct(alias); taken {
		if cur == canonical {
			return nil
		}
		return &types.ConflictError{ID: alias}
	}

	d := tx.data()
	d.aliases[alias] = canonical
	if norm := s.norm.Normalize(alias); norm != "" {
		if _, ok := d.normIndex[norm]; !ok {
			d.normIndex[norm] = canonical
		}
	}
	return nil
}

func edgeProvenance(attrs types.Attributes) (float64, string) {
	confidence := 1.0
	if v, ok := attrs.Get("confidence"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			confidence = f
		}
	}
	method, _ := attrs.Get("method")
	return confidence, method
}

func addsAttributes(r *types.Relationship, attrs types.Attributes) bool {
	adds := false
	attrs.Each(func(k, _ string) bool {
		if _, ok := r.Attributes.Get(k); !ok {
			adds = true
			return false
		}
		return true
	})
	return adds
}

type edgeKey struct {
	source string
	target string
}

// graphData is the indexed graph content. It is never mutated once a
// Snapshot references it.
type graphData struct {
	entities   map[string]*types.Entity
	order      []string
	aliases    map[string]string
	normIndex  map[string]string
	signatures map[string]string
	byType     map[types.EntityType][]string
	out        map[string][]string
	in         map[string][]string
	edges      map[edgeKey]*types.Relationship
	edgeOrder  []edgeKey
}

func newGraphData() *graphData {
	return &graphData{
		entities:   make(map[string]*types.Entity),
		aliases:    make(map[string]string),
		normIndex:  make(map[string]string),
		signatures: make(map[string]string),
		byType:     make(map[types.EntityType][]string),
		out:        make(map[string][]string),
		in:         make(map[string][]string),
		edges:      make(map[edgeKey]*types.Relationship),
	}
}

// clone copies every index. Slices are clipped so appends on the copy never
// write into memory shared with the original.
func (d *graphData) clone() *graphData {
	clipAll := func(m map[string][]string) map[string][]string {
		c := make(map[string][]string, len(m))
		for k, v := range m {
			c[k] = slices.Clip(v)
		}
		return c
	}
	byType := make(map[types.EntityType][]string, len(d.byType))
	for k, v := range d.byType {
		byType[k] = slices.Clip(v)
	}
	return &graphData{
		entities:   maps.Clone(d.entities),
		order:      slices.Clip(d.order),
		aliases:    maps.Clone(d.aliases),
		normIndex:  maps.Clone(d.normIndex),
		signatures: maps.Clone(d.signatures),
		byType:     byType,
		out:        clipAll(d.out),
		in:         clipAll(d.in),
		edges:      maps.Clone(d.edges),
		edgeOrder:  slices.Clip(d.edgeOrder),
	}
}

// direct looks up a canonical id or a registered alias without normalization.
func (d *graphData) direct(id string) (string, bool) {
	if _, ok := d.entities[id]; ok {
		return id, true
	}
	c, ok := d.aliases[id]
	return c, ok
}

func (d *graphData) resolve(norm *Normalizer, raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", false
	}
	if c, ok := d.direct(id); ok {
		return c, true
	}
	c, ok := d.normIndex[norm.Normalize(id)]
	return c, ok
}
