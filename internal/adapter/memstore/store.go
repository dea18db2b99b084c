// Package memstore serves shipment records from an in-memory snapshot
// loaded from a JSON fixture file.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/couchcryptid/cargo-analytics/internal/domain"
)

// ErrReadOnly is returned by InsertPrediction on a read-only store.
var ErrReadOnly = errors.New("memstore: read-only")

// Option configures a Store.
type Option func(*Store)

// WithReadOnly rejects prediction inserts.
func WithReadOnly() Option {
	return func(s *Store) { s.readOnly = true }
}

// Store holds an immutable record snapshot and an append-only prediction log.
type Store struct {
	records  []domain.RawRecord
	readOnly bool

	mu          sync.RWMutex
	predictions []domain.PredictionRecord
}

// New creates a store over records. The slice is copied.
func New(records []domain.RawRecord, opts ...Option) *Store {
	s := &Store{records: slices.Clone(records)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFile reads a fixture with ReadRecords and serves it.
func LoadFile(path string, opts ...Option) (*Store, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return nil, err
	}
	return New(records, opts...), nil
}

// ReadRecords reads shipment records from a JSON array (.json) or a CSV
// export with a header row (.csv).
func ReadRecords(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	defer f.Close()

	var records []domain.RawRecord
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		records, err = ReadCSV(f)
	} else {
		err = json.NewDecoder(f).Decode(&records)
	}
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return records, nil
}

// FindRecords returns the records matching filter in snapshot order.
func (s *Store) FindRecords(ctx context.Context, filter domain.Filter) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.RawRecord, 0, len(s.records))
	for _, raw := range s.records {
		if filter.Matches(domain.Normalize(raw)) {
			out = append(out, raw)
		}
	}
	return out, nil
}

// InsertPrediction assigns an id and creation time and appends p to the log.
func (s *Store) InsertPrediction(ctx context.Context, p domain.PredictionRecord) (domain.PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.PredictionRecord{}, err
	}
	if s.readOnly {
		return domain.PredictionRecord{}, ErrReadOnly
	}
	p.ID = uuid.NewString()
	p.CreatedAt = domain.Now()

	s.mu.Lock()
	s.predictions = append(s.predictions, p)
	s.mu.Unlock()
	return p, nil
}

// ListPredictions returns the prediction log, newest first.
func (s *Store) ListPredictions(ctx context.Context) ([]domain.PredictionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := slices.Clone(s.predictions)
	s.mu.RUnlock()

	slices.Reverse(out)
	// Insertion order breaks ties between equal timestamps.
	slices.SortStableFunc(out, func(a, b domain.PredictionRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if out == nil {
		out = []domain.PredictionRecord{}
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Len returns the number of records in the snapshot.
func (s *Store) Len() int { return len(s.records) }
