// Package memstore is an in-memory core.Store for development and tests.
// Data lives only as long as the Store value.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/idcards/internal/core"
)

// Store keeps registered records per record type, keyed by identifier.
type Store struct {
	mu      sync.RWMutex
	records map[core.RecordType]map[string]core.StoredRecord
	order   map[core.RecordType][]string // identifiers in insertion order
	imports []core.ImportBatch
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[core.RecordType]map[string]core.StoredRecord),
		order:   make(map[core.RecordType][]string),
		now:     time.Now,
	}
}

var _ core.Store = (*Store)(nil)

// ExistingIdentifiers implements core.Store.
func (s *Store) ExistingIdentifiers(ctx context.Context, rt core.RecordType, ids []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.records[rt]
	var found []string
	for _, id := range ids {
		if _, ok := byID[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

// InsertBatch implements core.Store. The batch is all-or-nothing: a
// duplicate identifier rejects every record in it.
func (s *Store) InsertBatch(ctx context.Context, rt core.RecordType, importID uuid.UUID, recs []core.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, ok := s.records[rt]
	if !ok {
		byID = make(map[string]core.StoredRecord)
		s.records[rt] = byID
	}

	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if _, exists := byID[r.Identifier]; exists || seen[r.Identifier] {
			return 0, fmt.Errorf("duplicate key: %s %q", rt, r.Identifier)
		}
		seen[r.Identifier] = true
	}

	now := s.now().UTC()
	for _, r := range recs {
		byID[r.Identifier] = core.StoredRecord{
			ID:         uuid.New(),
			ImportID:   importID,
			RecordType: rt,
			Identifier: r.Identifier,
			Fields:     r.Strings(),
			CreatedAt:  now,
		}
		s.order[rt] = append(s.order[rt], r.Identifier)
	}
	return len(recs), nil
}

// List implements core.Store.
func (s *Store) List(ctx context.Context, rt core.RecordType, limit, offset int) ([]core.StoredRecord, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.order[rt]
	total := int64(len(order))

	out := make([]core.StoredRecord, 0, limit)
	// Newest first
	for i := len(order) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[rt][order[i]])
	}
	return out, total, nil
}

// Count implements core.Store.
func (s *Store) Count(ctx context.Context, rt core.RecordType) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records[rt])), nil
}

// RecordImport implements core.Store.
func (s *Store) RecordImport(ctx context.Context, batch core.ImportBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.imports {
		if b.ID == batch.ID {
			s.imports[i] = batch
			return nil
		}
	}
	s.imports = append(s.imports, batch)
	return nil
}

// ListImports implements core.Store.
func (s *Store) ListImports(ctx context.Context, rt core.RecordType, limit int) ([]core.ImportBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []core.ImportBatch
	for i := len(s.imports) - 1; i >= 0; i-- {
		if rt == "" || s.imports[i].RecordType == rt {
			out = append(out, s.imports[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping implements core.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
