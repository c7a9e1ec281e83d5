package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultBatchSize is the largest number of records sent to a store in one call.
const DefaultBatchSize = 500

// Record is one row of an entity, keyed by column name.
type Record = map[string]interface{}

// Entity describes a table of the target store (or a snapshot file of the local store).
type Entity struct {
	Name string // table & snapshot name
	Key  string // primary key column
}

func (e Entity) String() string { return e.Name }

var (
	ChecklistItems  = Entity{Name: "checklist_items", Key: "id"}
	Students        = Entity{Name: "students", Key: "id"}
	Completions     = Entity{Name: "student_checklist", Key: "student_id"} // not unique: one row per completed item
	Cohorts         = Entity{Name: "cohorts", Key: "id"}
	EmailTemplates  = Entity{Name: "email_templates", Key: "id"}
	EmailCategories = Entity{Name: "email_template_categories", Key: "id"}

	AllEntities = []Entity{ChecklistItems, Students, Completions, Cohorts, EmailTemplates, EmailCategories}
)

// LookupEntity returns the Entity with the given name.
func LookupEntity(name string) (Entity, error) {
	for _, e := range AllEntities {
		if e.Name == name {
			return e, nil
		}
	}
	return Entity{}, ErrUnknownEntity
}

type (
	// BatchWriter holds the primitives the batch loader replaces an entity with.
	BatchWriter interface {
		// DeleteAll removes every row of the entity.
		DeleteAll(ctx context.Context, entity Entity) error
		// Insert appends records to the entity, in order.
		Insert(ctx context.Context, entity Entity, records []Record) error
	}

	// Store is the persistence boundary of the application.
	// It is implemented once against the remote Postgres service and once against local JSON snapshots.
	Store interface {
		BatchWriter

		// Backend names the implementation ("remote" | "file").
		Backend() string
		// Ping checks that the store is reachable.
		Ping(ctx context.Context) error
		ReadAll(ctx context.Context, entity Entity) ([]Record, error)
		// ReplaceAll swaps the entity's content for records and returns the number of rows written.
		ReplaceAll(ctx context.Context, entity Entity, records []Record) (int, error)
		// DeleteByID removes every row whose entity.Key equals id. Returns ErrNotFound when nothing matched.
		// Completions are keyed by student_id, so deleting one removes all of that student's completions.
		DeleteByID(ctx context.Context, entity Entity, id string) error
		// UpsertByKey inserts rec, or updates the row sharing its value for column key.
		UpsertByKey(ctx context.Context, entity Entity, key string, rec Record) error
	}
)

// FormatKey renders a key column value so that ids read from JSON or SQL compare equal.
func FormatKey(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
