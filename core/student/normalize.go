package student

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// skip reasons
const (
	SkipNoChecklist = "no checklist"
	SkipNoID        = "checklist present but record has no id"
)

type (
	// Skip is a record that still migrates as a student but contributes no completions.
	Skip struct {
		Index  int // position in the legacy list
		Email  string
		Reason string
	}

	// Result is the output of Normalize.
	Result struct {
		Students    []Student
		Completions []Completion
		Skipped     []Skip
	}

	// completionKey holds the student id as written to the store.
	completionKey struct {
		student interface{}
		item    int
	}
)

// Decode parses a legacy students snapshot: a JSON array of objects.
// Missing optional fields are tolerated; anything else fails the whole snapshot.
func Decode(data []byte) ([]LegacyRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, core.NewValidationError(errors.Wrap(err, "students snapshot is not a JSON array"))
	}
	if raws == nil {
		return nil, core.NewValidationError(errors.New("students snapshot is not a JSON array"))
	}

	records := make([]LegacyRecord, 0, len(raws))
	for i, raw := range raws {
		field := fmt.Sprintf("[%d]", i)
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "must be an object"})
		}
		var lr LegacyRecord
		if err := json.Unmarshal(raw, &lr); err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: err.Error()})
		}
		records = append(records, lr)
	}
	return records, nil
}

// Normalize deduplicates students by email (first occurrence wins, order is kept; a missing email is one bucket)
// and turns every record's checklist into completion records stamped with now.
// At most one completion is produced per (student, item) pair.
func Normalize(records []LegacyRecord, now time.Time) Result {
	now = now.UTC()
	res := Result{Students: make([]Student, 0, len(records))}
	seenEmails := make(map[null.String]bool, len(records))
	seenCompletions := make(map[completionKey]bool)

	for i, lr := range records {
		email := lr.Email
		if !email.Valid {
			email = null.String{} // one bucket for null & missing
		}
		if !seenEmails[email] {
			seenEmails[email] = true
			res.Students = append(res.Students, lr.Normalize())
		}

		if lr.Checklist == nil {
			res.Skipped = append(res.Skipped, Skip{Index: i, Email: lr.Email.String, Reason: SkipNoChecklist})
			continue
		}
		ids := lr.Checklist.ItemIDs()
		if len(ids) == 0 {
			continue
		}
		if lr.ID.IsZero() {
			res.Skipped = append(res.Skipped, Skip{Index: i, Email: lr.Email.String, Reason: SkipNoID})
			continue
		}
		for _, itemID := range ids {
			key := completionKey{student: lr.ID.Value(), item: itemID}
			if seenCompletions[key] {
				continue
			}
			seenCompletions[key] = true
			res.Completions = append(res.Completions, Completion{StudentID: lr.ID, ChecklistItemID: itemID, CompletedAt: now})
		}
	}
	return res
}

// StudentRecords converts students to store records.
func StudentRecords(students []Student) []core.Record {
	recs := make([]core.Record, 0, len(students))
	for _, s := range students {
		recs = append(recs, s.Record())
	}
	return recs
}

// CompletionRecords converts completions to store records.
func CompletionRecords(completions []Completion) []core.Record {
	recs := make([]core.Record, 0, len(completions))
	for _, c := range completions {
		recs = append(recs, c.Record())
	}
	return recs
}
