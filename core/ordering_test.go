package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortRecords(t *testing.T) {
	tests := []struct {
		name      string
		records   []Record
		orderings []Ordering
		want      []Record
	}{
		{
			name:    "no ordering keeps input order",
			records: []Record{{"id": 2}, {"id": 1}},
			want:    []Record{{"id": 2}, {"id": 1}},
		},
		{
			name:      "numbers compare numerically",
			records:   []Record{{"id": json.Number("10")}, {"id": 9}, {"id": "2"}},
			orderings: []Ordering{{Field: "id", Ascending: true}},
			want:      []Record{{"id": "2"}, {"id": 9}, {"id": json.Number("10")}},
		},
		{
			name:      "nil first, descending then ascending",
			records:   []Record{{"c": "B", "n": "y"}, {"c": nil, "n": "z"}, {"c": "B", "n": "x"}, {"c": "A", "n": "w"}},
			orderings: []Ordering{{Field: "c", Ascending: false}, {Field: "n", Ascending: true}},
			want:      []Record{{"c": "B", "n": "x"}, {"c": "B", "n": "y"}, {"c": "A", "n": "w"}, {"c": nil, "n": "z"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			SortRecords(tc.records, tc.orderings)
			assert.Equal(t, tc.want, tc.records)
		})
	}
}
