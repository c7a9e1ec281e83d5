package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/core/student"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp    = errors.New("help provided")
	errAborted = errors.New("aborted")
)

type commandLine struct {
	conf   *core.Config
	store  core.Store
	logger core.Logger
	stdin  io.Reader
	stdout io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  check - probe the target store")
	fmt.Fprintln(cli.stdout, "  migrate [-source DIR] [-only ENTITY] [-yes] - replace the target tables with the legacy snapshots")
	fmt.Fprintln(cli.stdout, "  catalog - print the checklist items the legacy fields map to")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	migrateSource := migrateCmd.String("source", cli.conf.Migration.SourceDir, "Directory holding the legacy <entity>.json snapshots.")
	migrateOnly := migrateCmd.String("only", "", "Run a single step: "+strings.Join(migrationSteps(), ", "))
	migrateYes := migrateCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "check":
		return cli.check(ctx)
	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if !*migrateYes && isTerminalFunc(int(syscall.Stdin)) {
			ok, err := cli.confirm(fmt.Sprintf("Every row of the target tables (%s store) will be replaced. Continue? [y/N] ", cli.store.Backend()))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}
		return cli.migrate(ctx, *migrateSource, *migrateOnly)
	case "catalog":
		cli.catalog()
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) confirm(prompt string) (bool, error) {
	fmt.Fprint(cli.stdout, prompt)
	answer, err := bufio.NewReader(cli.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (cli *commandLine) check(ctx context.Context) error {
	if err := cli.store.Ping(ctx); err != nil {
		if !core.IsConnectivity(err) {
			err = core.NewConnectivityError(err)
		}
		return err
	}
	fmt.Fprintf(cli.stdout, "%s store is reachable\n", cli.store.Backend())
	return nil
}

func (cli *commandLine) catalog() {
	w := tabwriter.NewWriter(cli.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL")
	for _, it := range student.Catalog() {
		fmt.Fprintf(w, "%d\t%s\n", it.ID, it.Label)
	}
	_ = w.Flush()
}
