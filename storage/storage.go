// Package storage selects and builds the store once, at startup.
package storage

import (
	"fmt"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage/database"
	"github.com/osama-eldrieny/cohort-manager-sub000/storage/snapshot"
)

// Backend is the store variant in use: Remote (Postgres) or File (local snapshots).
type Backend int

const (
	File Backend = iota
	Remote
)

func (b Backend) String() string {
	switch b {
	case Remote:
		return "remote"
	case File:
		return "file"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// SelectBackend picks Remote when database credentials are configured, File otherwise.
func SelectBackend(conf *core.Config) Backend {
	if conf.Database.HasCredentials() {
		return Remote
	}
	return File
}

// Open builds the store for the selected backend. The returned close func releases its resources.
func Open(conf *core.Config, logger core.Logger) (core.Store, func() error, error) {
	switch backend := SelectBackend(conf); backend {
	case Remote:
		db, err := database.Open(conf.Database)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using remote store", core.Fields{"host": conf.Database.Address(), "database": conf.Database.Name, "engine": conf.Database.Engine})
		store := database.NewStore(db, conf.Database.PingAttempts)
		return store, store.Close, nil
	default:
		logger.Info("no database credentials, using local snapshots", core.Fields{"dir": conf.Storage.DataDir})
		return snapshot.New(conf.Storage.DataDir), func() error { return nil }, nil
	}
}
