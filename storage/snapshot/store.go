// Package snapshot is the local flat-file store: one JSON array per entity, <dir>/<entity>.json.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// Store keeps every entity in its own snapshot file.
// Writes go to a temp file in the same directory which is then renamed over the snapshot,
// so a failed write never leaves a half-written file behind.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ core.Store = (*Store)(nil) // interface compliance check

func New(dir string) *Store {
	if dir == "" {
		dir = "data"
	}
	return &Store{dir: dir}
}

func (s *Store) Backend() string { return "file" }

func (s *Store) path(entity core.Entity) string {
	return filepath.Join(s.dir, entity.Name+".json")
}

// Ping makes sure the data directory exists and is a directory.
func (s *Store) Ping(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return core.NewFileIOError(s.dir, err)
	}
	fi, err := os.Stat(s.dir)
	if err != nil {
		return core.NewFileIOError(s.dir, err)
	}
	if !fi.IsDir() {
		return core.NewFileIOError(s.dir, errors.New("not a directory"))
	}
	return nil
}

// read loads the entity's snapshot. A missing file is an empty entity.
func (s *Store) read(entity core.Entity) ([]core.Record, error) {
	path := s.path(entity)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, core.NewFileIOError(path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []core.Record{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var records []core.Record
	if err := dec.Decode(&records); err != nil {
		return nil, core.NewFileIOError(path, errors.Wrap(err, "decoding snapshot"))
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

func (s *Store) write(entity core.Entity, records []core.Record) error {
	path := s.path(entity)
	if records == nil {
		records = []core.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", entity)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return core.NewFileIOError(s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+entity.Name+"-*")
	if err != nil {
		return core.NewFileIOError(path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return core.NewFileIOError(path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return core.NewFileIOError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return core.NewFileIOError(path, err)
	}
	// atomically move into place
	if err := os.Rename(tmp.Name(), path); err != nil {
		return core.NewFileIOError(path, err)
	}
	return nil
}

func (s *Store) ReadAll(_ context.Context, entity core.Entity) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(entity)
}

func (s *Store) ReplaceAll(_ context.Context, entity core.Entity, records []core.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(entity, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Store) DeleteAll(_ context.Context, entity core.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(entity, nil)
}

func (s *Store) Insert(_ context.Context, entity core.Entity, records []core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(entity)
	if err != nil {
		return err
	}
	return s.write(entity, append(current, records...))
}

func (s *Store) DeleteByID(_ context.Context, entity core.Entity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(entity)
	if err != nil {
		return err
	}
	kept := make([]core.Record, 0, len(current))
	for _, rec := range current {
		if core.FormatKey(rec[entity.Key]) != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(current) {
		return core.ErrNotFound
	}
	return s.write(entity, kept)
}

func (s *Store) UpsertByKey(_ context.Context, entity core.Entity, key string, rec core.Record) error {
	want := core.FormatKey(rec[key])
	if want == "" {
		return core.NewValidationError(nil, core.FieldError{Field: key, Error: "upsert key is required"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(entity)
	if err != nil {
		return err
	}
	for i, existing := range current {
		if core.FormatKey(existing[key]) == want {
			merged := make(core.Record, len(existing)+len(rec))
			for k, v := range existing {
				merged[k] = v
			}
			for k, v := range rec {
				merged[k] = v
			}
			current[i] = merged
			return s.write(entity, current)
		}
	}
	return s.write(entity, append(current, rec))
}
