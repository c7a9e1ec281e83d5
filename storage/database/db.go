package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

var (
	sqlxOpen  = sqlx.Open // mockable
	pingDelay = 100 * time.Millisecond
)

// DSN builds the connection URL from the database configuration.
func DSN(conf core.DatabaseConfig) string {
	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conf.User, conf.Password),
		Host:     conf.Address(),
		Path:     conf.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open prepares a connection pool. conf.Engine is the database/sql driver: "postgres" (lib/pq) or "pgx".
// Nothing is dialed until the first query or Ping.
func Open(conf core.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlxOpen(conf.Engine, DSN(conf))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
// Rejected credentials are not retried.
func ping(ctx context.Context, db *sqlx.DB, maxAttempts int) error {
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if isAuthError(err) || attempts == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return core.NewConnectivityError(ctx.Err())
		case <-time.After(time.Duration(attempts) * pingDelay):
		}
	}
	return core.NewConnectivityError(errors.Wrap(err, "DB ping"))
}

// isAuthError reports SQLSTATE class 28 (invalid authorization) from either driver.
func isAuthError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "28"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "28"
	}
	return false
}
