package sweat

import (
	"database/sql"
	"fmt"
	"io"
	"log"

	"github.com/go-sql-driver/mysql"
)

// NewDriverMySQL returns a Driver for a MySQL or MariaDB server.
func NewDriverMySQL(config DriverMySQLConfig) Driver {
	return &driverMySQL{
		config: config,
	}
}

type DriverMySQLConfig struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type driverMySQL struct {
	config DriverMySQLConfig
}

func (driver *driverMySQL) Open() (*sql.DB, error) {
	_ = mysql.SetLogger(log.New(io.Discard, "", log.LstdFlags))

	return sql.Open("mysql", fmt.Sprintf(
		"%s:%s@(%s:%d)/%s?parseTime=true",
		driver.config.User,
		driver.config.Pass,
		driver.config.Host,
		driver.config.Port,
		driver.config.Name,
	))
}

func (driver *driverMySQL) name() string {
	return "mysql"
}

func (driver *driverMySQL) quoteIdentifier(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (driver *driverMySQL) usesNumberedParameters() bool {
	return false
}

func (driver *driverMySQL) usesLastInsertId() bool {
	return true
}

func (driver *driverMySQL) returningClause(primaryKey string) string {
	return ""
}
