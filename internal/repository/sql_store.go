package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// SQLStore implements Store on top of a MySQL database.  Each
// WithinTx call maps to one *sql.Tx; the conditional updates that
// guard the capacity ledger are single UPDATE statements, so the
// database's row-level atomicity carries the no-oversell guarantee
// across any number of engine instances.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore returns a SQLStore bound to the provided database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// WithinTx implements Store.  The transaction is rolled back unless
// fn returns nil and the commit succeeds.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	committed = true
	return nil
}

// sqlTx implements Tx over one open *sql.Tx.  Method implementations
// are grouped by concern in the *_sql.go files of this package.
type sqlTx struct {
	tx *sql.Tx
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry
// violation (error 1062), which is how unique payment references are
// detected without a racy pre-read.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
