// Package telemetry records error logs and reasoning results to Parquet files.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
)

// DefaultBatchSize is the number of rows buffered before a file is written.
const DefaultBatchSize = 100

// sink buffers rows of one schema and writes each full buffer to a new file.
type sink[T any] struct {
	mu        sync.Mutex
	dir       string
	prefix    string
	batchSize int
	buffer    []T
	files     int
}

func newSink[T any](dir, prefix string, batchSize int) (*sink[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &sink[T]{dir: dir, prefix: prefix, batchSize: batchSize, buffer: make([]T, 0, batchSize)}, nil
}

func (s *sink[T]) add(row T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer = append(s.buffer, row)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *sink[T]) flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *sink[T]) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}
	now := time.Now()
	s.files++
	name := fmt.Sprintf("%s_%s_%d_%d.parquet", s.prefix, now.Format("20060102_150405"), now.UnixNano(), s.files)
	if err := parquet.WriteFile(filepath.Join(s.dir, name), s.buffer); err != nil {
		return fmt.Errorf("failed to write telemetry parquet file: %w", err)
	}
	s.buffer = make([]T, 0, s.batchSize)
	return nil
}
