package student

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

var migratedAt = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func decode(t *testing.T, data string) []LegacyRecord {
	t.Helper()
	records, err := Decode([]byte(data))
	require.NoError(t, err)
	return records
}

func emails(students []Student) []null.String {
	out := make([]null.String, 0, len(students))
	for _, s := range students {
		out = append(out, s.Email)
	}
	return out
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantLen   int
		wantField string
		wantErr   bool
	}{
		{name: "empty list", data: `[]`, wantLen: 0},
		{name: "numeric and string ids", data: `[{"id": 17, "name": "A"}, {"id": "s-2", "name": "B"}]`, wantLen: 2},
		{name: "missing optional fields", data: `[{"name": "Only Name"}]`, wantLen: 1},
		{name: "not an array", data: `{"students": []}`, wantErr: true},
		{name: "null document", data: `null`, wantErr: true},
		{name: "element not an object", data: `[{"name": "A"}, 42]`, wantErr: true, wantField: "[1]"},
		{name: "wrongly typed field", data: `[{"name": "A"}, {"email": 3}]`, wantErr: true, wantField: "[1]"},
		{name: "checklist not an object", data: `[{"checklist": "done"}]`, wantErr: true, wantField: "[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Decode([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err), "Decode() error = %T, want *core.ValidationError", err)
				if tt.wantField != "" {
					vErr := err.(*core.ValidationError)
					require.NotEmpty(t, vErr.Fields)
					assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
				}
				return
			}
			require.NoError(t, err)
			assert.Len(t, records, tt.wantLen)
		})
	}
}

func TestDecode_IDs(t *testing.T) {
	records := decode(t, `[{"id": 17}, {"id": "s-2"}, {"id": null}, {}]`)
	assert.Equal(t, []ID{NumberID("17"), StringID("s-2"), {}, {}}, []ID{records[0].ID, records[1].ID, records[2].ID, records[3].ID})
	assert.Equal(t, int64(17), records[0].ID.Value())
	assert.Equal(t, "s-2", records[1].ID.Value())
	assert.Nil(t, records[2].ID.Value())
	assert.True(t, records[3].ID.IsZero())
}

func TestID_KeepsForm(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantValue interface{}
		wantJSON  string
	}{
		{name: "integer", data: `7`, wantValue: int64(7), wantJSON: `7`},
		{name: "padded string", data: `"007"`, wantValue: "007", wantJSON: `"007"`},
		{name: "signed string", data: `"+5"`, wantValue: "+5", wantJSON: `"+5"`},
		{name: "numeric string", data: `"7"`, wantValue: "7", wantJSON: `"7"`},
		{name: "fractional number", data: `7.5`, wantValue: json.Number("7.5"), wantJSON: `7.5`},
		{name: "null", data: `null`, wantValue: nil, wantJSON: `null`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.data), &id))
			assert.Equal(t, tt.wantValue, id.Value())

			got, err := json.Marshal(Completion{StudentID: id, ChecklistItemID: 1, CompletedAt: migratedAt})
			require.NoError(t, err)
			assert.JSONEq(t, `{"student_id": `+tt.wantJSON+`, "checklist_item_id": 1, "completed_at": "2026-10-18T09:30:00Z"}`, string(got))
		})
	}
}

func TestNormalize_Dedup(t *testing.T) {
	records := decode(t, `[
		{"id": 1, "name": "Ada", "email": "ada@example.com", "cohort": "C1"},
		{"id": 2, "name": "No Mail"},
		{"id": 3, "name": "Ada again", "email": "ada@example.com", "cohort": "C2"},
		{"id": 4, "name": "Null Mail", "email": null},
		{"id": 5, "name": "Grace", "email": "grace@example.com"},
		{"id": 6, "name": "Upper", "email": "ADA@example.com"}
	]`)

	res := Normalize(records, migratedAt)

	assert.Equal(t, []null.String{
		null.StringFrom("ada@example.com"),
		{},
		null.StringFrom("grace@example.com"),
		null.StringFrom("ADA@example.com"),
	}, emails(res.Students))
	assert.Equal(t, "Ada", res.Students[0].Name.String, "first occurrence must win")
	assert.Equal(t, "C1", res.Students[0].Cohort.String)
	assert.Equal(t, "No Mail", res.Students[1].Name.String)
}

func TestNormalize_Idempotent(t *testing.T) {
	records := decode(t, `[
		{"id": 1, "name": "Ada", "email": "ada@example.com", "status": "active", "location": "Cairo"},
		{"id": 2, "name": "No Mail"},
		{"id": 3, "name": "Grace", "email": "grace@example.com"}
	]`)

	first := Normalize(records, migratedAt)
	again := make([]LegacyRecord, 0, len(first.Students))
	for _, s := range first.Students {
		again = append(again, LegacyRecord{Name: s.Name, Email: s.Email, Cohort: s.Cohort, Status: s.Status, Location: s.Location})
	}
	second := Normalize(again, migratedAt)

	assert.Equal(t, first.Students, second.Students)
}

func TestNormalize_DropsExtraFields(t *testing.T) {
	records := decode(t, `[{"id": 9, "name": "Ada", "email": "ada@example.com", "phone": "123", "notes": {"x": 1}}]`)

	res := Normalize(records, migratedAt)

	require.Len(t, res.Students, 1)
	rec := res.Students[0].Record()
	assert.Len(t, rec, 5)
	assert.Equal(t, core.Record{"name": "Ada", "email": "ada@example.com", "cohort": nil, "status": nil, "location": nil}, rec)
}

func TestNormalize_Completions(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantItems []int
		wantSkips []string
	}{
		{
			name:      "community and approved figma",
			data:      `[{"id": 7, "email": "a@x.io", "checklist": {"addedCommunity": true, "figmaStatus": "Approved"}}]`,
			wantItems: []int{1, 12},
		},
		{
			name:      "absent checklist",
			data:      `[{"id": 7, "email": "a@x.io"}]`,
			wantSkips: []string{SkipNoChecklist},
		},
		{
			name:      "only strictly true flags",
			data:      `[{"id": 7, "checklist": {"addedCommunity": "true", "sentWelcomeEmail": 1, "joinedWhatsapp": false, "issuedCertificate": true}}]`,
			wantItems: []int{11},
		},
		{
			name: "unmatched figma status",
			data: `[{"id": 7, "checklist": {"figmaStatus": "approved"}}]`,
		},
		{
			name:      "each figma status maps once",
			data:      `[{"id": 1, "checklist": {"figmaStatus": "Pending"}}, {"id": 2, "checklist": {"figmaStatus": "Rejected"}}, {"id": 3, "checklist": {"figmaStatus": "Not Requested"}}]`,
			wantItems: []int{13, 14, 15},
		},
		{
			name:      "duplicate records do not duplicate completions",
			data:      `[{"id": 7, "email": "a@x.io", "checklist": {"paidDeposit": true}}, {"id": 7, "email": "a@x.io", "checklist": {"paidDeposit": true, "paidInFull": true}}]`,
			wantItems: []int{6, 7},
		},
		{
			name:      "string and number ids stay distinct",
			data:      `[{"id": "007", "checklist": {"addedCommunity": true}}, {"id": 7, "checklist": {"addedCommunity": true}}, {"id": "007", "checklist": {"addedCommunity": true}}]`,
			wantItems: []int{1, 1},
		},
		{
			name:      "checklist without id",
			data:      `[{"email": "a@x.io", "checklist": {"paidDeposit": true}}]`,
			wantSkips: []string{SkipNoID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(decode(t, tt.data), migratedAt)

			var items []int
			for _, c := range res.Completions {
				items = append(items, c.ChecklistItemID)
				assert.Equal(t, migratedAt, c.CompletedAt)
			}
			assert.Equal(t, tt.wantItems, items)

			var skips []string
			for _, s := range res.Skipped {
				skips = append(skips, s.Reason)
			}
			assert.Equal(t, tt.wantSkips, skips)
		})
	}
}

func TestNormalize_CompletionStudentID(t *testing.T) {
	res := Normalize(decode(t, `[{"id": 42, "checklist": {"addedCommunity": true, "figmaStatus": "Approved"}}]`), migratedAt)

	require.Len(t, res.Completions, 2)
	for _, c := range res.Completions {
		assert.Equal(t, NumberID("42"), c.StudentID)
		assert.Equal(t, int64(42), c.Record()["student_id"])
	}
}

func TestNormalize_CompletionPerWrittenID(t *testing.T) {
	res := Normalize(decode(t, `[
		{"id": "007", "checklist": {"addedCommunity": true}},
		{"id": 7, "checklist": {"addedCommunity": true}},
		{"id": 7, "checklist": {"addedCommunity": true}}
	]`), migratedAt)

	var ids []interface{}
	for _, rec := range CompletionRecords(res.Completions) {
		ids = append(ids, rec["student_id"])
	}
	assert.Equal(t, []interface{}{"007", int64(7)}, ids)
}

func TestCatalog(t *testing.T) {
	items := Catalog()

	require.Len(t, items, 15)
	for i, it := range items {
		assert.Equal(t, i+1, it.ID)
		assert.NotEmpty(t, it.Label)
	}
	assert.Equal(t, []int{12, 15}, MissingItems([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 14}))
	assert.Empty(t, MissingItems([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}))
}
