package sweat

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewDriverSQLite returns a Driver for the SQLite database file at path. Use
// ":memory:" for a throwaway database.
func NewDriverSQLite(path string) Driver {
	return &driverSQLite{
		Path: path,
	}
}

type driverSQLite struct {
	Path string
}

func (driver *driverSQLite) Open() (*sql.DB, error) {
	return sql.Open(
		"sqlite3",
		fmt.Sprintf("file:%s?cache=shared&_foreign_keys=on", driver.Path),
	)
}

func (driver *driverSQLite) name() string {
	return "sqlite"
}

func (driver *driverSQLite) quoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

func (driver *driverSQLite) usesNumberedParameters() bool {
	return false
}

func (driver *driverSQLite) usesLastInsertId() bool {
	return true
}

func (driver *driverSQLite) returningClause(primaryKey string) string {
	return ""
}
