package sweat

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewDriverPostgres returns a Driver for a PostgreSQL server. Generated keys
// come back through a RETURNING clause instead of LastInsertId.
func NewDriverPostgres(config DriverPostgresConfig) Driver {
	return &driverPostgres{
		config: config,
	}
}

type DriverPostgresConfig struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type driverPostgres struct {
	config DriverPostgresConfig
}

func (driver *driverPostgres) Open() (*sql.DB, error) {
	return sql.Open(
		"postgres",
		fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			driver.config.Host,
			driver.config.Port,
			driver.config.User,
			driver.config.Pass,
			driver.config.Name,
		),
	)
}

func (driver *driverPostgres) name() string {
	return "postgres"
}

func (driver *driverPostgres) quoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

func (driver *driverPostgres) usesNumberedParameters() bool {
	return true
}

func (driver *driverPostgres) usesLastInsertId() bool {
	return false
}

func (driver *driverPostgres) returningClause(primaryKey string) string {
	return fmt.Sprintf(` RETURNING %s as "id"`, driver.quoteIdentifier(primaryKey))
}
