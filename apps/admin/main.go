package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	logsvc "github.com/osama-eldrieny/cohort-manager-sub000/services/logger"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	appLogger := logsvc.NewRollbarLogger(logger, conf)

	// set up store
	store, closeStore, err := storage.Open(conf, appLogger)
	errAndDie(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	// start CLI
	cli := commandLine{
		conf:   conf,
		store:  store,
		logger: appLogger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	stop()
	_ = closeStore()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
