// Package db opens the Postgres database behind the postgres storage backend.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Drivers accepted by InitPostgres.
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// InitPostgres opens a connection pool with the given database/sql driver
// ("postgres" for lib/pq, "pgx" for pgx) and checks it with a ping.
func InitPostgres(driver, dsn string) (*sql.DB, error) {
	if driver != DriverPQ && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
