// Package db stores camera site calibrations in SQLite. Each site carries
// the region polygon and ground-plane calibration that a speedcam run needs.
// Violations are never stored here; they live on disk as evidence captures.
package db

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// pragmas are applied by the driver to every new connection.
const pragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		dsn = "file:" + path + "?" + pragmas
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

// NewDB opens the database and applies every pending migration.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
