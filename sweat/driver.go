package sweat

import "database/sql"

// Driver abstracts the per-database seams: how to open a handle, how to quote
// identifiers, which placeholder style the server expects, and how generated
// keys come back from an INSERT. Everything else is shared.
type Driver interface {
	Open() (*sql.DB, error)

	name() string
	quoteIdentifier(name string) string
	usesNumberedParameters() bool
	usesLastInsertId() bool
	returningClause(primaryKey string) string
}
