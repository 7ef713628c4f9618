package repositories

import (
	"database/sql"
)

// PostgresStore implements Store on lib/pq. Every multi-row invariant is
// enforced inside a single transaction with row locks.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}
