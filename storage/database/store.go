// Package database is the remote store: one Postgres table per entity.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// impossibleKey is never a real key value. The hosted Postgres API refuses a DELETE without a WHERE clause,
// so "delete everything" is expressed as "key <> impossibleKey". Rows with a NULL key are not matched.
const impossibleKey = "-1"

var columnRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	db           *sqlx.DB
	pingAttempts int
}

var _ core.Store = (*Store)(nil) // interface compliance check

func NewStore(db *sqlx.DB, pingAttempts int) *Store {
	if pingAttempts <= 0 {
		pingAttempts = 1
	}
	return &Store{db: db, pingAttempts: pingAttempts}
}

func (s *Store) Backend() string { return "remote" }

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return ping(ctx, s.db, s.pingAttempts)
}

func (s *Store) ReadAll(ctx context.Context, entity core.Entity) ([]core.Record, error) {
	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", pq.QuoteIdentifier(entity.Name), pq.QuoteIdentifier(entity.Key))
	rows, err := s.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "selecting %s", entity)
	}
	defer func() { _ = rows.Close() }()

	records := make([]core.Record, 0)
	for rows.Next() {
		rec := make(core.Record)
		if err := rows.MapScan(rec); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", entity)
		}
		for col, val := range rec {
			if b, ok := val.([]byte); ok {
				if json.Valid(b) {
					rec[col] = json.RawMessage(b)
				} else {
					rec[col] = string(b)
				}
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "selecting %s", entity)
	}
	return records, nil
}

func (s *Store) DeleteAll(ctx context.Context, entity core.Entity) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s <> $1", pq.QuoteIdentifier(entity.Name), pq.QuoteIdentifier(entity.Key))
	if _, err := s.db.ExecContext(ctx, q, impossibleKey); err != nil {
		return errors.Wrapf(err, "deleting %s", entity)
	}
	return nil
}

// Insert writes records with one multi-row INSERT. Columns are the union of the records' keys;
// a record missing a column inserts NULL.
func (s *Store) Insert(ctx context.Context, entity core.Entity, records []core.Record) error {
	if len(records) == 0 {
		return nil
	}
	cols, err := columns(records)
	if err != nil {
		return err
	}
	rows := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, sqlRow(cols, rec))
	}
	if _, err := s.db.NamedExecContext(ctx, insertQuery(entity, cols), rows); err != nil {
		return errors.Wrapf(err, "inserting %s", entity)
	}
	return nil
}

// ReplaceAll deletes the entity's rows and inserts records in batches of core.DefaultBatchSize,
// stopping at the first rejected batch.
func (s *Store) ReplaceAll(ctx context.Context, entity core.Entity, records []core.Record) (int, error) {
	if err := s.DeleteAll(ctx, entity); err != nil {
		return 0, err
	}
	var n int
	for start := 0; start < len(records); start += core.DefaultBatchSize {
		batch := records[start:min(start+core.DefaultBatchSize, len(records))]
		if err := s.Insert(ctx, entity, batch); err != nil {
			return n, err
		}
		n += len(batch)
	}
	return n, nil
}

func (s *Store) DeleteByID(ctx context.Context, entity core.Entity, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", pq.QuoteIdentifier(entity.Name), pq.QuoteIdentifier(entity.Key))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return errors.Wrapf(err, "deleting %s %s", entity, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting %s %s", entity, id)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpsertByKey relies on a unique constraint over key.
func (s *Store) UpsertByKey(ctx context.Context, entity core.Entity, key string, rec core.Record) error {
	if core.FormatKey(rec[key]) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: key, Error: "upsert key is required"})
	}
	cols, err := columns([]core.Record{rec})
	if err != nil {
		return err
	}

	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != key {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(c), pq.QuoteIdentifier(c)))
		}
	}
	action := "DO NOTHING"
	if len(updates) > 0 {
		action = "DO UPDATE SET " + strings.Join(updates, ", ")
	}
	q := fmt.Sprintf("%s ON CONFLICT (%s) %s", insertQuery(entity, cols), pq.QuoteIdentifier(key), action)

	if _, err := s.db.NamedExecContext(ctx, q, sqlRow(cols, rec)); err != nil {
		return errors.Wrapf(err, "upserting %s", entity)
	}
	return nil
}

func insertQuery(entity core.Entity, cols []string) string {
	quoted := make([]string, 0, len(cols))
	named := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, pq.QuoteIdentifier(c))
		named = append(named, ":"+c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(entity.Name), strings.Join(quoted, ", "), strings.Join(named, ", "))
}

// columns returns the sorted union of the records' keys.
func columns(records []core.Record) ([]string, error) {
	set := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			if !columnRegex.MatchString(col) {
				return nil, core.NewValidationError(nil, core.FieldError{Field: col, Error: "invalid column name"})
			}
			set[col] = true
		}
	}
	cols := make([]string, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// sqlRow fills every column and converts values the drivers cannot encode.
func sqlRow(cols []string, rec core.Record) map[string]interface{} {
	row := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		switch val := rec[c].(type) {
		case json.Number:
			row[c] = val.String()
		case map[string]interface{}, []interface{}:
			b, err := json.Marshal(val)
			if err != nil {
				row[c] = nil
				continue
			}
			row[c] = string(b)
		case json.RawMessage:
			row[c] = string(val)
		default:
			row[c] = val
		}
	}
	return row
}
