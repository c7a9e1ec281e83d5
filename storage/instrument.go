package storage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// Metrics are the store operation collectors.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cohort_manager",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by entity, operation and outcome.",
		}, []string{"backend", "entity", "op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cohort_manager",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cohort_manager",
			Subsystem: "store",
			Name:      "records_written_total",
			Help:      "Records written by entity.",
		}, []string{"backend", "entity"}),
	}
	reg.MustRegister(m.ops, m.duration, m.records)
	return m
}

type instrumented struct {
	core.Store
	m *Metrics
}

// Instrument wraps store so that every operation is counted and timed.
func Instrument(store core.Store, m *Metrics) core.Store {
	return &instrumented{Store: store, m: m}
}

func (s *instrumented) observe(entity, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backend := s.Store.Backend()
	s.m.ops.WithLabelValues(backend, entity, op, outcome).Inc()
	s.m.duration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func (s *instrumented) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("", "ping", start, err) }(time.Now())
	return s.Store.Ping(ctx)
}

func (s *instrumented) ReadAll(ctx context.Context, entity core.Entity) (_ []core.Record, err error) {
	defer func(start time.Time) { s.observe(entity.Name, "read_all", start, err) }(time.Now())
	return s.Store.ReadAll(ctx, entity)
}

func (s *instrumented) ReplaceAll(ctx context.Context, entity core.Entity, records []core.Record) (n int, err error) {
	defer func(start time.Time) {
		s.observe(entity.Name, "replace_all", start, err)
		s.m.records.WithLabelValues(s.Store.Backend(), entity.Name).Add(float64(n))
	}(time.Now())
	return s.Store.ReplaceAll(ctx, entity, records)
}

func (s *instrumented) DeleteByID(ctx context.Context, entity core.Entity, id string) (err error) {
	defer func(start time.Time) { s.observe(entity.Name, "delete_by_id", start, err) }(time.Now())
	return s.Store.DeleteByID(ctx, entity, id)
}

func (s *instrumented) UpsertByKey(ctx context.Context, entity core.Entity, key string, rec core.Record) (err error) {
	defer func(start time.Time) {
		s.observe(entity.Name, "upsert_by_key", start, err)
		if err == nil {
			s.m.records.WithLabelValues(s.Store.Backend(), entity.Name).Inc()
		}
	}(time.Now())
	return s.Store.UpsertByKey(ctx, entity, key, rec)
}

func (s *instrumented) DeleteAll(ctx context.Context, entity core.Entity) (err error) {
	defer func(start time.Time) { s.observe(entity.Name, "delete_all", start, err) }(time.Now())
	return s.Store.DeleteAll(ctx, entity)
}

func (s *instrumented) Insert(ctx context.Context, entity core.Entity, records []core.Record) (err error) {
	defer func(start time.Time) {
		s.observe(entity.Name, "insert", start, err)
		if err == nil {
			s.m.records.WithLabelValues(s.Store.Backend(), entity.Name).Add(float64(len(records)))
		}
	}(time.Now())
	return s.Store.Insert(ctx, entity, records)
}
