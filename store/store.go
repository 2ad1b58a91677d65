// Package store is the knowledge store: durable persistence for saved
// research entries and navigation history, backed by SQLite.
package store

import (
	"database/sql"

	"github.com/hazyhaar/carnet/dbopen"
)

// Store is the knowledge-store database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the knowledge-store database at path, applies
// pragmas and the carnet schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
