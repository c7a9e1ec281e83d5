package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/core/student"
)

// Steps, in the order they run.
const (
	StepChecklistItems  = "checklist_items"
	StepStudents        = "students"
	StepCohorts         = "cohorts"
	StepEmailTemplates  = "email_templates"
	StepEmailCategories = "email_template_categories"
)

var Steps = []string{StepChecklistItems, StepStudents, StepCohorts, StepEmailTemplates, StepEmailCategories}

type (
	Options struct {
		Store     core.Store
		Source    *Source
		Logger    core.Logger
		Validator *core.Validator
		BatchSize int
		Now       func() time.Time // completion timestamp; defaults to time.Now
		Only      string           // run a single step
	}

	// EntityReport is the outcome of one target table.
	EntityReport struct {
		Entity   string
		Total    int
		Migrated int
		Skipped  string // why nothing was migrated
		Failures []*core.BatchError
		Err      error
	}

	Report struct {
		RunID          string
		Backend        string
		StartedAt      time.Time
		FinishedAt     time.Time
		Entities       []EntityReport
		SkippedRecords []student.Skip
	}

	Service struct {
		opts   Options
		loader *Loader
	}
)

func (er EntityReport) OK() bool {
	return er.Skipped == "" && er.Err == nil && len(er.Failures) == 0
}

// FailedBatches returns the 1-based indices of the rejected batches.
func (er EntityReport) FailedBatches() []int {
	idx := make([]int, 0, len(er.Failures))
	for _, f := range er.Failures {
		idx = append(idx, f.Index)
	}
	return idx
}

// Failed returns the entities that were skipped or only partially migrated.
func (r Report) Failed() []EntityReport {
	var failed []EntityReport
	for _, er := range r.Entities {
		if !er.OK() {
			failed = append(failed, er)
		}
	}
	return failed
}

// Entity returns the report of the named entity.
func (r Report) Entity(name string) (EntityReport, bool) {
	for _, er := range r.Entities {
		if er.Entity == name {
			return er, true
		}
	}
	return EntityReport{}, false
}

// Print writes a human readable summary.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "migration %s (%s backend) finished in %s\n", r.RunID, r.Backend, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	for _, er := range r.Entities {
		switch {
		case er.Skipped != "":
			fmt.Fprintf(w, "  %-26s skipped: %s\n", er.Entity, er.Skipped)
		case er.Err != nil:
			fmt.Fprintf(w, "  %-26s failed: %v\n", er.Entity, er.Err)
		default:
			fmt.Fprintf(w, "  %-26s %d/%d migrated", er.Entity, er.Migrated, er.Total)
			if len(er.Failures) > 0 {
				msgs := make([]string, 0, len(er.Failures))
				for _, f := range er.Failures {
					msgs = append(msgs, fmt.Sprintf("batch %d: %v", f.Index, f.Err))
				}
				fmt.Fprintf(w, ", failed batches: %s", strings.Join(msgs, "; "))
			}
			fmt.Fprintln(w)
		}
	}
	if n := len(r.SkippedRecords); n > 0 {
		fmt.Fprintf(w, "  %d student record(s) migrated without completions\n", n)
	}
}

func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Validator == nil {
		opts.Validator = core.NewValidator()
	}
	return &Service{
		opts:   opts,
		loader: NewLoader(opts.Store, opts.BatchSize, opts.Logger),
	}
}

// Run probes the store, then migrates every entity in order.
// Only a failed probe returns an error (*core.ConnectivityError); entity failures are reported, not returned.
func (svc *Service) Run(ctx context.Context) (Report, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(svc.opts.Store, "Store"),
		vala.IsNotNil(svc.opts.Source, "Source"),
		vala.IsNotNil(svc.opts.Logger, "Logger"),
	).Check(); err != nil {
		return Report{}, errors.Wrap(err, "migration options")
	}

	steps := Steps
	if svc.opts.Only != "" {
		if !isStep(svc.opts.Only) {
			return Report{}, errors.Wrapf(core.ErrUnknownEntity, "step %q", svc.opts.Only)
		}
		steps = []string{svc.opts.Only}
	}

	report := Report{
		RunID:     uuid.New().String(),
		Backend:   svc.opts.Store.Backend(),
		StartedAt: time.Now().UTC(),
	}
	log := svc.opts.Logger

	if err := svc.opts.Store.Ping(ctx); err != nil {
		if !core.IsConnectivity(err) {
			err = core.NewConnectivityError(err)
		}
		log.Error("connectivity check failed", core.Fields{"run": report.RunID, "backend": report.Backend}, err)
		report.FinishedAt = time.Now().UTC()
		return report, err
	}
	log.Info("connectivity check passed", core.Fields{"run": report.RunID, "backend": report.Backend})

	for _, step := range steps {
		var reports []EntityReport
		switch step {
		case StepChecklistItems:
			reports = svc.migrateChecklistItems(ctx)
		case StepStudents:
			var skips []student.Skip
			reports, skips = svc.migrateStudents(ctx)
			report.SkippedRecords = append(report.SkippedRecords, skips...)
		case StepCohorts:
			reports = svc.migratePassThrough(ctx, core.Cohorts)
		case StepEmailTemplates:
			reports = svc.migratePassThrough(ctx, core.EmailTemplates)
		case StepEmailCategories:
			reports = svc.migrateCategories(ctx)
		}
		for _, er := range reports {
			svc.logOutcome(report.RunID, er)
		}
		report.Entities = append(report.Entities, reports...)
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func isStep(name string) bool {
	for _, s := range Steps {
		if s == name {
			return true
		}
	}
	return false
}

func (svc *Service) logOutcome(runID string, er EntityReport) {
	flds := core.Fields{"run": runID, "entity": er.Entity}
	switch {
	case er.Skipped != "":
		flds["reason"] = er.Skipped
		svc.opts.Logger.Warn("entity skipped", flds)
	case er.Err != nil:
		svc.opts.Logger.Error("entity migration failed", flds, er.Err)
	case len(er.Failures) > 0:
		flds["migrated"], flds["total"], flds["failedBatches"] = er.Migrated, er.Total, er.FailedBatches()
		svc.opts.Logger.Warn("entity partially migrated", flds)
	default:
		flds["migrated"] = er.Migrated
		svc.opts.Logger.Info("entity migrated", flds)
	}
}

// skipped builds the report of an entity whose snapshot could not be used.
func skipped(entity core.Entity, err error) EntityReport {
	switch {
	case core.IsFileIO(err):
		return EntityReport{Entity: entity.Name, Skipped: "snapshot unavailable: " + err.Error()}
	case core.IsValidation(err):
		return EntityReport{Entity: entity.Name, Skipped: "invalid snapshot: " + err.Error()}
	default:
		return EntityReport{Entity: entity.Name, Err: err}
	}
}

func (svc *Service) load(ctx context.Context, entity core.Entity, records []core.Record) EntityReport {
	res, err := svc.loader.Load(ctx, entity, records)
	return EntityReport{Entity: entity.Name, Total: res.Total, Migrated: res.Inserted, Failures: res.Failures, Err: err}
}

func (svc *Service) migrateChecklistItems(ctx context.Context) []EntityReport {
	records, err := svc.opts.Source.Records(core.ChecklistItems)
	if err != nil {
		return []EntityReport{skipped(core.ChecklistItems, err)}
	}

	ids := make([]int, 0, len(records))
	for i, rec := range records {
		var it student.Item
		if id, ok := rec["id"].(json.Number); ok {
			n, _ := id.Int64()
			it.ID = int(n)
		}
		it.Label, _ = rec["label"].(string)
		if err := svc.opts.Validator.Check(it, fmt.Sprintf("[%d].", i)); err != nil {
			return []EntityReport{skipped(core.ChecklistItems, err)}
		}
		ids = append(ids, it.ID)
	}

	er := svc.load(ctx, core.ChecklistItems, records)
	if missing := student.MissingItems(ids); len(missing) > 0 && er.Err == nil {
		svc.opts.Logger.Warn("checklist catalog is missing mapped items", core.Fields{"missing": missing})
	}
	return []EntityReport{er}
}

func (svc *Service) migrateStudents(ctx context.Context) ([]EntityReport, []student.Skip) {
	data, err := svc.opts.Source.Read(core.Students)
	var legacy []student.LegacyRecord
	if err == nil {
		legacy, err = student.Decode(data)
	}
	if err != nil {
		return []EntityReport{skipped(core.Students, err), skipped(core.Completions, err)}, nil
	}

	res := student.Normalize(legacy, svc.opts.Now())
	for _, s := range res.Skipped {
		svc.opts.Logger.Debug("student migrated without completions", core.Fields{"index": s.Index, "email": s.Email, "reason": s.Reason})
	}

	return []EntityReport{
		svc.load(ctx, core.Students, student.StudentRecords(res.Students)),
		svc.load(ctx, core.Completions, student.CompletionRecords(res.Completions)),
	}, res.Skipped
}

func (svc *Service) migratePassThrough(ctx context.Context, entity core.Entity) []EntityReport {
	records, err := svc.opts.Source.Records(entity)
	if err != nil {
		return []EntityReport{skipped(entity, err)}
	}
	return []EntityReport{svc.load(ctx, entity, records)}
}

type categoryList struct {
	Names []string `json:"names" validate:"dive,required,notblank"`
}

// migrateCategories turns the bare name list into records with sequential 1-based ids.
func (svc *Service) migrateCategories(ctx context.Context) []EntityReport {
	names, err := svc.opts.Source.Names(core.EmailCategories)
	if err == nil {
		err = svc.opts.Validator.Check(categoryList{Names: names}, "")
	}
	if err != nil {
		return []EntityReport{skipped(core.EmailCategories, err)}
	}
	return []EntityReport{svc.load(ctx, core.EmailCategories, CategoryRecords(names))}
}

// CategoryRecords assigns ids 1..n to names, in order.
func CategoryRecords(names []string) []core.Record {
	records := make([]core.Record, 0, len(names))
	for i, name := range names {
		records = append(records, core.Record{"id": i + 1, "name": name})
	}
	return records
}
