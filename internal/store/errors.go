package store

import (
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
)

// ErrInvalidSchema is returned when a schema name fails validation before
// any query is built.
var ErrInvalidSchema = errors.New("invalid schema name")

// ErrMissingTable is returned when a query hits a relation that does not
// exist yet, typically a schema that has not been migrated. The dashboard
// turns this into "run migrations" guidance instead of a raw SQL error.
var ErrMissingTable = errors.New("table not found in schema")

// classify maps low-level Postgres errors onto the store's error
// taxonomy; anything unrecognized passes through unchanged.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return errors.Join(ErrMissingTable, err)
	}
	return err
}
