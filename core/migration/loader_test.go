package migration

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage/memory"
	testutil "github.com/osama-eldrieny/cohort-manager-sub000/tests"
)

func records(n int) []core.Record {
	recs := make([]core.Record, 0, n)
	for i := 1; i <= n; i++ {
		recs = append(recs, core.Record{"id": i})
	}
	return recs
}

func TestLoader_Load(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		total     int
		wantCalls []int
	}{
		{name: "1200 records", batchSize: 500, total: 1200, wantCalls: []int{500, 500, 200}},
		{name: "exact multiple", batchSize: 500, total: 1000, wantCalls: []int{500, 500}},
		{name: "single partial batch", batchSize: 500, total: 3, wantCalls: []int{3}},
		{name: "default batch size", batchSize: 0, total: 501, wantCalls: []int{500, 1}},
		{name: "nothing to insert", batchSize: 500, total: 0, wantCalls: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			store.Seed(core.Cohorts, core.Record{"id": "stale"})

			res, err := NewLoader(store, tc.batchSize, &testutil.Logger{}).Load(context.Background(), core.Cohorts, records(tc.total))
			require.NoError(t, err)

			assert.Equal(t, tc.wantCalls, store.InsertCalls(core.Cohorts))
			assert.Equal(t, tc.total, res.Total)
			assert.Equal(t, tc.total, res.Inserted)
			assert.Equal(t, len(tc.wantCalls), res.Batches)
			assert.Empty(t, res.Failures)

			rows, err := store.ReadAll(context.Background(), core.Cohorts)
			require.NoError(t, err)
			require.Len(t, rows, tc.total)
			for i, row := range rows {
				assert.Equal(t, i+1, row["id"], "insertion order")
			}
		})
	}
}

func TestLoader_Load_PartialFailure(t *testing.T) {
	store := memory.New()
	store.OnInsert = func(_ core.Entity, call int, _ []core.Record) error {
		if call == 2 {
			return errors.New("duplicate key value violates unique constraint")
		}
		return nil
	}
	logger := &testutil.Logger{}

	res, err := NewLoader(store, 500, logger).Load(context.Background(), core.Students, records(1200))
	require.NoError(t, err)

	assert.Equal(t, []int{500, 500, 200}, store.InsertCalls(core.Students))
	assert.Equal(t, 3, res.Batches)
	assert.Equal(t, 700, res.Inserted)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, 500, res.Failures[0].Size)
	assert.Contains(t, res.Failures[0].Error(), "batch 2")
	assert.Contains(t, res.Failures[0].Error(), "duplicate key value")

	rows, err := store.ReadAll(context.Background(), core.Students)
	require.NoError(t, err)
	assert.Len(t, rows, 700)
	assert.Contains(t, logger.Messages(), "ERROR batch insert failed")
}

func TestLoader_Load_DeleteFails(t *testing.T) {
	store := memory.New()
	store.DeleteAllErr = errors.New("permission denied")

	res, err := NewLoader(store, 500, &testutil.Logger{}).Load(context.Background(), core.Cohorts, records(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cohorts: deleting existing rows")
	assert.Empty(t, store.InsertCalls(core.Cohorts))
	assert.Zero(t, res.Inserted)
}
