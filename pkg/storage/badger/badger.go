// Package badger persists graph snapshots in an embedded BadgerDB.
//
// A saved snapshot is stored as exchange records under one key per record:
//
//	meta           snapshot metadata, written last
//	e/<seq>        entity records in insertion order
//	r/<seq>        relationship records in insertion order
//	a/<seq>        alias records
//
// Saving replaces the previous snapshot. Loading returns the records as a
// types.Batch that an ingest.Loader replays into a fresh graph.Store.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

var (
	metaKey        = []byte("meta")
	entityPrefix   = []byte("e/")
	relationPrefix = []byte("r/")
	aliasPrefix    = []byte("a/")
)

// Config holds configuration for a snapshot store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// GCDiscardRatio is passed to value log GC after each save. Zero disables GC.
	GCDiscardRatio float64

	// Logger receives store and BadgerDB messages. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a persistent configuration for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, GCDiscardRatio: 0.5}
}

// InMemoryConfig returns a configuration without disk persistence.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Meta describes the saved snapshot.
type Meta struct {
	Version       uint64    `json:"version"`
	Entities      int       `json:"entities"`
	Relationships int       `json:"relationships"`
	Aliases       int       `json:"aliases"`
	SavedAt       time.Time `json:"saved_at"`
}

// Store saves and loads graph snapshots.
type Store struct {
	db       *badger.DB
	inMemory bool
	gcRatio  float64
	logger   *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// BadgerDB is chatty at info level, so info and debug go to Debug.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the snapshot store described by cfg, creating the directory
// when needed. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent snapshot store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, inMemory: cfg.InMemory, gcRatio: cfg.GCDiscardRatio, logger: logger}, nil
}

// OpenInMemory opens a store that is lost on Close.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored snapshot with snap.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) (Meta, error) {
	return s.SaveBatch(ctx, snap.Records(), snap.Version())
}

// SaveBatch replaces the stored snapshot with the records of b, tagged with
// version.
func (s *Store) SaveBatch(ctx context.Context, b *types.Batch, version uint64) (Meta, error) {
	if err := s.clear(); err != nil {
		return Meta{}, fmt.Errorf("clear previous snapshot: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	put := func(prefix []byte, seq int, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return wb.Set(recordKey(prefix, seq), data)
	}
	for i, e := range b.Entities {
		if err := ctx.Err(); err != nil {
			return Meta{}, err
		}
		if err := put(entityPrefix, i, e); err != nil {
			return Meta{}, fmt.Errorf("write entity %s: %w", e.ID, err)
		}
	}
	for i, r := range b.Relationships {
		if err := ctx.Err(); err != nil {
			return Meta{}, err
		}
		if err := put(relationPrefix, i, r); err != nil {
			return Meta{}, fmt.Errorf("write relationship %s->%s: %w", r.Source, r.Target, err)
		}
	}
	for i, a := range b.Aliases {
		if err := put(aliasPrefix, i, a); err != nil {
			return Meta{}, fmt.Errorf("write alias %s: %w", a.Alias, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return Meta{}, fmt.Errorf("flush snapshot records: %w", err)
	}

	meta := Meta{
		Version:       version,
		Entities:      len(b.Entities),
		Relationships: len(b.Relationships),
		Aliases:       len(b.Aliases),
		SavedAt:       time.Now().UTC(),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return Meta{}, err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey, data)
	}); err != nil {
		return Meta{}, fmt.Errorf("write snapshot meta: %w", err)
	}

	s.collectGarbage()
	s.logger.Info("snapshot saved",
		"version", meta.Version,
		"entities", meta.Entities,
		"relationships", meta.Relationships,
		"aliases", meta.Aliases)
	return meta, nil
}

// Meta returns the metadata of the stored snapshot.
func (s *Store) Meta() (Meta, error) {
	var meta Meta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

// Load returns the stored snapshot as a batch. It returns ErrNoSnapshot
// when nothing was saved.
func (s *Store) Load(ctx context.Context) (*types.Batch, Meta, error) {
	meta, err := s.Meta()
	if err != nil {
		return nil, Meta{}, err
	}

	b := &types.Batch{
		Entities:      make([]types.EntityRecord, 0, meta.Entities),
		Relationships: make([]types.RelationshipRecord, 0, meta.Relationships),
	}
	err = s.db.View(func(txn *badger.Txn) error {
		if err := scan(ctx, txn, entityPrefix, func(val []byte) error {
			var rec types.EntityRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			b.Entities = append(b.Entities, rec)
			return nil
		}); err != nil {
			return fmt.Errorf("read entities: %w", err)
		}
		if err := scan(ctx, txn, relationPrefix, func(val []byte) error {
			var rec types.RelationshipRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			b.Relationships = append(b.Relationships, rec)
			return nil
		}); err != nil {
			return fmt.Errorf("read relationships: %w", err)
		}
		if err := scan(ctx, txn, aliasPrefix, func(val []byte) error {
			var rec types.AliasRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			b.Aliases = append(b.Aliases, rec)
			return nil
		}); err != nil {
			return fmt.Errorf("read aliases: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, Meta{}, err
	}
	if len(b.Entities) != meta.Entities || len(b.Relationships) != meta.Relationships {
		return nil, Meta{}, fmt.Errorf("%w: snapshot meta expects %d entities and %d relationships, found %d and %d",
			types.ErrCorruptIndex, meta.Entities, meta.Relationships, len(b.Entities), len(b.Relationships))
	}

	s.logger.Info("snapshot loaded", "version", meta.Version, "entities", meta.Entities, "relationships", meta.Relationships)
	return b, meta, nil
}

func scan(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := it.Item().Value(fn); err != nil {
			return fmt.Errorf("key %s: %w", it.Item().Key(), err)
		}
	}
	return nil
}

// clear deletes the meta key first so that an interrupted save leaves no
// loadable snapshot behind.
func (s *Store) clear() error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(metaKey)
	}); err != nil {
		return err
	}

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// recordKey zero-pads seq so that key order matches insertion order.
func recordKey(prefix []byte, seq int) []byte {
	return fmt.Appendf(append([]byte(nil), prefix...), "%010d", seq)
}

func (s *Store) collectGarbage() {
	if s.inMemory || s.gcRatio <= 0 {
		return
	}
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) {
			s.logger.Warn("value log gc failed", "error", err)
		}
		return
	}
}
