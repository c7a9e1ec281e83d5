package migration

import (
	"context"

	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

// LoadResult is the outcome of replacing one entity.
type LoadResult struct {
	Entity   string
	Total    int
	Inserted int
	Batches  int
	Failures []*core.BatchError
}

// Loader replaces an entity's rows: delete everything, then insert in sequential batches.
// Not transactional: if the process dies between the delete and the inserts the entity is left empty.
type Loader struct {
	writer    core.BatchWriter
	batchSize int
	logger    core.Logger
}

func NewLoader(writer core.BatchWriter, batchSize int, logger core.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = core.DefaultBatchSize
	}
	return &Loader{writer: writer, batchSize: batchSize, logger: logger}
}

// Load replaces entity's content with records. A rejected batch is recorded and the next one is tried;
// only a failed delete aborts the load.
func (l *Loader) Load(ctx context.Context, entity core.Entity, records []core.Record) (LoadResult, error) {
	res := LoadResult{Entity: entity.Name, Total: len(records)}

	if err := l.writer.DeleteAll(ctx, entity); err != nil {
		return res, errors.Wrapf(err, "%s: deleting existing rows", entity)
	}

	for start, index := 0, 1; start < len(records); start, index = start+l.batchSize, index+1 {
		batch := records[start:min(start+l.batchSize, len(records))]
		res.Batches++

		if err := l.writer.Insert(ctx, entity, batch); err != nil {
			bErr := &core.BatchError{Entity: entity.Name, Index: index, Size: len(batch), Err: err}
			res.Failures = append(res.Failures, bErr)
			l.logger.Error("batch insert failed", core.Fields{"entity": entity.Name, "batch": index, "size": len(batch)}, bErr)
			continue
		}
		res.Inserted += len(batch)
		l.logger.Debug("batch inserted", core.Fields{"entity": entity.Name, "batch": index, "size": len(batch)})
	}
	return res, nil
}
