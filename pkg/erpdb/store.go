// Package erpdb reads job, operation, material, and labor data from the
// Epicor SQL Server database. All access is read-only; labor and receipt
// transactions go through the Epicor REST API instead.
package erpdb

import (
	"context"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
)

// Store wraps the ERP database handle.
type Store struct {
	db *sqlx.DB
}

// New opens the ERP database. The connection is verified lazily; call
// Ping to check it eagerly.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlserver", dsn)
	if err != nil {
		return nil, cerr.Wrap(err, "open ERP database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing handle. Tests use this with sqlmock.
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// inQuery expands slice arguments and rebinds placeholders for the
// SQL Server driver.
func (s *Store) inQuery(query string, args ...interface{}) (string, []interface{}, error) {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, cerr.Wrap(err, "expand query arguments")
	}
	return s.db.Rebind(q), expanded, nil
}
