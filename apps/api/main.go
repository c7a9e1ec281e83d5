package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/osama-eldrieny/cohort-manager-sub000/apps/api/echo"
	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	logsvc "github.com/osama-eldrieny/cohort-manager-sub000/services/logger"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)
	logger := logsvc.NewRollbarLogger(std, conf)

	// set up store
	store, closeStore, err := storage.Open(conf, logger)
	errAndDie(std, err)
	defer func() { _ = closeStore() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	store = storage.Instrument(store, storage.NewMetrics(reg))

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address: conf.Server.Address,
			Debug:   conf.Debug,
			Store:   store,
			Logger:  logger,
			Metrics: reg,
		},
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening", core.Fields{"address": conf.Server.Address, "backend": store.Backend()})
		serverErrors <- app.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", err)
		}
	case sig := <-shutdown:
		logger.Info("shutting down", core.Fields{"signal": sig.String()})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			logger.Error("graceful shutdown failed", err)
		}
	}
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
