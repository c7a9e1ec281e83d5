package main

import (
	"context"

	"github.com/osama-eldrieny/cohort-manager-sub000/core/migration"
)

func migrationSteps() []string { return migration.Steps }

// migrate runs the migration and prints its report. Entity failures are in the report;
// only an unreachable store (or an unknown step) is returned.
func (cli *commandLine) migrate(ctx context.Context, source, only string) error {
	svc := migration.NewService(migration.Options{
		Store:     cli.store,
		Source:    migration.NewSource(source),
		Logger:    cli.logger,
		BatchSize: cli.conf.Migration.BatchSize,
		Only:      only,
	})
	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	report.Print(cli.stdout)
	return nil
}
