// Package memory is an in-memory core.Store used by tests.
package memory

import (
	"context"
	"sync"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

type (
	// InsertHook is consulted before every Insert; a non-nil error rejects the batch.
	// call is the 1-based number of Insert calls made for the entity.
	InsertHook func(entity core.Entity, call int, records []core.Record) error

	Store struct {
		sync.RWMutex
		tables      map[string][]core.Record
		insertCalls map[string][]int

		PingErr      error
		DeleteAllErr error
		OnInsert     InsertHook
	}
)

var _ core.Store = (*Store)(nil) // interface compliance check

func New() *Store {
	return &Store{
		tables:      make(map[string][]core.Record),
		insertCalls: make(map[string][]int),
	}
}

func (s *Store) Backend() string { return "memory" }

func (s *Store) Ping(_ context.Context) error { return s.PingErr }

func (s *Store) query(entity core.Entity) []core.Record {
	records := make([]core.Record, 0, len(s.tables[entity.Name]))
	for _, rec := range s.tables[entity.Name] {
		records = append(records, copyRecord(rec))
	}
	return records
}

// Seed sets the entity's rows without going through Insert.
func (s *Store) Seed(entity core.Entity, records ...core.Record) {
	s.Lock()
	defer s.Unlock()
	s.tables[entity.Name] = append(s.tables[entity.Name], records...)
}

// InsertCalls returns the batch sizes passed to Insert for entity, in call order.
func (s *Store) InsertCalls(entity core.Entity) []int {
	s.RLock()
	defer s.RUnlock()
	return append([]int(nil), s.insertCalls[entity.Name]...)
}

func (s *Store) ReadAll(_ context.Context, entity core.Entity) ([]core.Record, error) {
	s.RLock()
	defer s.RUnlock()
	return s.query(entity), nil
}

func (s *Store) ReplaceAll(_ context.Context, entity core.Entity, records []core.Record) (int, error) {
	s.Lock()
	defer s.Unlock()
	table := make([]core.Record, 0, len(records))
	for _, rec := range records {
		table = append(table, copyRecord(rec))
	}
	s.tables[entity.Name] = table
	return len(table), nil
}

func (s *Store) DeleteAll(_ context.Context, entity core.Entity) error {
	s.Lock()
	defer s.Unlock()
	if s.DeleteAllErr != nil {
		return s.DeleteAllErr
	}
	delete(s.tables, entity.Name)
	return nil
}

func (s *Store) Insert(_ context.Context, entity core.Entity, records []core.Record) error {
	s.Lock()
	defer s.Unlock()

	s.insertCalls[entity.Name] = append(s.insertCalls[entity.Name], len(records))
	if s.OnInsert != nil {
		if err := s.OnInsert(entity, len(s.insertCalls[entity.Name]), records); err != nil {
			return err
		}
	}
	for _, rec := range records {
		s.tables[entity.Name] = append(s.tables[entity.Name], copyRecord(rec))
	}
	return nil
}

func (s *Store) DeleteByID(_ context.Context, entity core.Entity, id string) error {
	s.Lock()
	defer s.Unlock()

	table := s.tables[entity.Name]
	kept := make([]core.Record, 0, len(table))
	for _, rec := range table {
		if core.FormatKey(rec[entity.Key]) != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(table) {
		return core.ErrNotFound
	}
	s.tables[entity.Name] = kept
	return nil
}

func (s *Store) UpsertByKey(_ context.Context, entity core.Entity, key string, rec core.Record) error {
	want := core.FormatKey(rec[key])
	if want == "" {
		return core.NewValidationError(nil, core.FieldError{Field: key, Error: "upsert key is required"})
	}

	s.Lock()
	defer s.Unlock()

	for i, existing := range s.tables[entity.Name] {
		if core.FormatKey(existing[key]) == want {
			for k, v := range rec {
				existing[k] = v
			}
			s.tables[entity.Name][i] = existing
			return nil
		}
	}
	s.tables[entity.Name] = append(s.tables[entity.Name], copyRecord(rec))
	return nil
}

func copyRecord(rec core.Record) core.Record {
	out := make(core.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
