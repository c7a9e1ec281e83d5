package migration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// Source reads the legacy flat-file snapshots, one JSON array per entity: <dir>/<entity>.json.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

func (src *Source) Path(entity core.Entity) string {
	return filepath.Join(src.dir, entity.Name+".json")
}

// Read returns the raw snapshot. Any failure is a *core.FileIOError.
func (src *Source) Read(entity core.Entity) ([]byte, error) {
	path := src.Path(entity)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewFileIOError(path, err)
	}
	return data, nil
}

// Records reads a snapshot of pass-through records. Numbers are kept as json.Number.
func (src *Source) Records(entity core.Entity) ([]core.Record, error) {
	data, err := src.Read(entity)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil || raws == nil {
		return nil, core.NewValidationError(errors.Errorf("%s snapshot is not a JSON array", entity))
	}
	records := make([]core.Record, 0, len(raws))
	for i, raw := range raws {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec core.Record
		if err := dec.Decode(&rec); err != nil || rec == nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: fmt.Sprintf("[%d]", i), Error: "must be an object"})
		}
		records = append(records, rec)
	}
	return records, nil
}

// Names reads a snapshot holding a bare list of names.
func (src *Source) Names(entity core.Entity) ([]string, error) {
	data, err := src.Read(entity)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil || names == nil {
		return nil, core.NewValidationError(errors.Errorf("%s snapshot is not a JSON array of strings", entity))
	}
	return names, nil
}
