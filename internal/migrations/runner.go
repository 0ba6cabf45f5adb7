package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func setup() {
	goose.SetDialect("sqlite3")
	goose.SetBaseFS(SQLite)
}

// Up migrates the SQLite schema to the latest version. It runs at process
// startup, before the scheduler or HTTP server is started, so a host's
// collected samples, anomalies, and alert history always land in a schema
// the rest of the process agrees on.
func Up(db *sql.DB) error {
	setup()
	return goose.Up(db, "sqlite")
}

// Down rolls back a single migration.
func Down(db *sql.DB) error {
	setup()
	return goose.Down(db, "sqlite")
}

// Status prints migration status.
func Status(db *sql.DB) error {
	setup()
	return goose.Status(db, "sqlite")
}

// Version reports the schema version currently applied to db, exposed by
// the readiness endpoint so operators can confirm a deployed binary and
// its database have actually converged after a rollout.
func Version(db *sql.DB) (int64, error) {
	setup()
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
