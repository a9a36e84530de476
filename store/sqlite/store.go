// Package sqlite provides a SQLite-backed store.Store.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/sqlstore"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	*sqlstore.Store
}

// New creates a SQLite store on an open bun database.
func New(db *bun.DB) *Store {
	return &Store{Store: sqlstore.New(db)}
}

// Open opens the SQLite database at dsn, e.g. "file:escrow.db?_foreign_keys=on"
// or "file:escrow?mode=memory&cache=shared".
//
// SQLite allows a single writer, so the pool is limited to one connection.
func Open(dsn string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("escrow/sqlite: open %q: %w", dsn, err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(bun.NewDB(sqlDB, sqlitedialect.New())), nil
}
