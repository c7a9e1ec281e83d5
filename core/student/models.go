package student

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// ID identifies a legacy student. Exports carry it either as a JSON number or as a string;
// the form is kept so that "007" and 7 stay distinct ids.
type ID struct {
	raw     string
	numeric bool
}

// NumberID returns the id of a JSON number.
func NumberID(n json.Number) ID { return ID{raw: n.String(), numeric: true} }

// StringID returns the id of a JSON string.
func StringID(s string) ID { return ID{raw: s} }

func (id ID) IsZero() bool { return id.raw == "" && !id.numeric }
func (id ID) String() string { return id.raw }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = NumberID(n)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

// Value returns the id as it is written to the store: an int64 for integral numbers,
// a json.Number for other numbers and the string itself otherwise.
func (id ID) Value() interface{} {
	switch {
	case id.IsZero():
		return nil
	case !id.numeric:
		return id.raw
	}
	if n, err := strconv.ParseInt(id.raw, 10, 64); err == nil {
		return n
	}
	return json.Number(id.raw)
}

// Checklist is the legacy embedded checklist: boolean flags plus the figma status.
type Checklist map[string]interface{}

// LegacyRecord is a pre-migration student entry.
type LegacyRecord struct {
	ID        ID          `json:"id"`
	Name      null.String `json:"name"`
	Email     null.String `json:"email"`
	Cohort    null.String `json:"cohort"`
	Status    null.String `json:"status"`
	Location  null.String `json:"location"`
	Checklist Checklist   `json:"checklist"`
}

// Normalize keeps the five fields forwarded to storage.
func (lr LegacyRecord) Normalize() Student {
	return Student{
		Name:     lr.Name,
		Email:    lr.Email,
		Cohort:   lr.Cohort,
		Status:   lr.Status,
		Location: lr.Location,
	}
}

// Student is a normalized student record.
type Student struct {
	Name     null.String `json:"name"`
	Email    null.String `json:"email" validate:"omitempty,email"`
	Cohort   null.String `json:"cohort"`
	Status   null.String `json:"status"`
	Location null.String `json:"location"`
}

func nullable(ns null.String) interface{} {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

func (s Student) Record() core.Record {
	return core.Record{
		"name":     nullable(s.Name),
		"email":    nullable(s.Email),
		"cohort":   nullable(s.Cohort),
		"status":   nullable(s.Status),
		"location": nullable(s.Location),
	}
}

// Completion states that a student finished a checklist item.
// CompletedAt is the migration time: legacy data never stored per-item timestamps.
type Completion struct {
	StudentID       ID        `json:"student_id"`
	ChecklistItemID int       `json:"checklist_item_id"`
	CompletedAt     time.Time `json:"completed_at"` // UTC
}

func (c Completion) Record() core.Record {
	return core.Record{
		"student_id":        c.StudentID.Value(),
		"checklist_item_id": c.ChecklistItemID,
		"completed_at":      c.CompletedAt.UTC(),
	}
}

// Item is a checklist catalog entry.
type Item struct {
	ID    int    `json:"id" validate:"required,min=1"`
	Label string `json:"label" validate:"required,notblank"`
}

func (it Item) Record() core.Record {
	return core.Record{"id": it.ID, "label": it.Label}
}
