package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage/memory"
	testutil "github.com/osama-eldrieny/cohort-manager-sub000/tests"
)

func TestSelectBackend(t *testing.T) {
	tests := []struct {
		name string
		db   core.DatabaseConfig
		want Backend
	}{
		{name: "no credentials", db: core.DatabaseConfig{}, want: File},
		{name: "host only", db: core.DatabaseConfig{Host: "db.example.com"}, want: File},
		{name: "user only", db: core.DatabaseConfig{User: "admin"}, want: File},
		{name: "host and user", db: core.DatabaseConfig{Host: "db.example.com", User: "admin"}, want: Remote},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectBackend(&core.Config{Database: tc.db}))
		})
	}
	assert.Equal(t, "remote", Remote.String())
	assert.Equal(t, "file", File.String())
}

func TestOpen(t *testing.T) {
	logger := &testutil.Logger{}

	store, closeFn, err := Open(&core.Config{Storage: core.StorageConfig{DataDir: t.TempDir()}}, logger)
	require.NoError(t, err)
	assert.Equal(t, "file", store.Backend())
	assert.NoError(t, closeFn())

	conf := &core.Config{Database: core.DatabaseConfig{Engine: "pgx", Host: "localhost", Port: 5432, Name: "cohorts", User: "admin", PingAttempts: 1}}
	store, closeFn, err = Open(conf, logger)
	require.NoError(t, err, "nothing is dialed on open")
	assert.Equal(t, "remote", store.Backend())
	assert.NoError(t, closeFn())

	assert.Equal(t, []string{"INFO no database credentials, using local snapshots", "INFO using remote store"}, logger.Messages())
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	mem := memory.New()
	store := Instrument(mem, NewMetrics(reg))

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.DeleteAll(ctx, core.Cohorts))
	require.NoError(t, store.Insert(ctx, core.Cohorts, []core.Record{{"id": 1}, {"id": 2}}))
	require.NoError(t, store.UpsertByKey(ctx, core.Cohorts, "id", core.Record{"id": 3}))

	mem.OnInsert = func(core.Entity, int, []core.Record) error { return errors.New("rejected") }
	require.Error(t, store.Insert(ctx, core.Cohorts, []core.Record{{"id": 4}}))

	assert.Equal(t, []int{2, 1}, mem.InsertCalls(core.Cohorts), "calls reach the wrapped store")

	expected := `
# HELP cohort_manager_store_records_written_total Records written by entity.
# TYPE cohort_manager_store_records_written_total counter
cohort_manager_store_records_written_total{backend="memory",entity="cohorts"} 3
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "cohort_manager_store_records_written_total"))

	expected = `
# HELP cohort_manager_store_operations_total Store operations by entity, operation and outcome.
# TYPE cohort_manager_store_operations_total counter
cohort_manager_store_operations_total{backend="memory",entity="",op="ping",outcome="ok"} 1
cohort_manager_store_operations_total{backend="memory",entity="cohorts",op="delete_all",outcome="ok"} 1
cohort_manager_store_operations_total{backend="memory",entity="cohorts",op="insert",outcome="error"} 1
cohort_manager_store_operations_total{backend="memory",entity="cohorts",op="insert",outcome="ok"} 1
cohort_manager_store_operations_total{backend="memory",entity="cohorts",op="upsert_by_key",outcome="ok"} 1
`
	require.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected), "cohort_manager_store_operations_total"))
}
