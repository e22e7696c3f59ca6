package sweattest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/tomvlk/sweat-orm/sweat"
	"github.com/tomvlk/sweat-orm/sweattools"
	"gopkg.in/yaml.v3"
)

// Fixture is a YAML description of a test database: schema statements per
// dialect and seed rows. Rows load in file order, so parents can come before
// the rows that reference them.
type Fixture struct {
	Schema map[string][]string `yaml:"schema"`
	Rows   []FixtureRow        `yaml:"rows"`
}

type FixtureRow struct {
	Table  string         `yaml:"table"`
	Values map[string]any `yaml:"values"`
}

// LoadFixture reads a fixture file, applies the schema statements matching
// the connection's dialect (falling back to the "default" section), and
// inserts every seed row.
func LoadFixture(t *testing.T, connection *sweat.Connection, path string) {
	t.Helper()

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Could not read fixture: %s", err)
	}

	fixture := Fixture{}
	if err := yaml.Unmarshal(contents, &fixture); err != nil {
		t.Fatalf("Could not parse fixture: %s", err)
	}

	ctx := context.Background()

	schema, found := fixture.Schema[connection.Dialect()]
	if !found {
		schema = fixture.Schema["default"]
	}

	for _, ddl := range schema {
		if _, err := connection.Run(ctx, ddl, nil); err != nil {
			t.Fatalf("Could not apply fixture schema: %s", err)
		}
	}

	for _, row := range fixture.Rows {
		columns := sweattools.Keys(row.Values)
		sort.Strings(columns)

		parameters := map[string]any{}
		placeholders := []string{}

		for _, column := range columns {
			key := ":" + column
			parameters[key] = row.Values[column]
			placeholders = append(placeholders, key)
		}

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			row.Table,
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
		)

		if _, err := connection.Run(ctx, query, parameters); err != nil {
			t.Fatalf("Could not insert fixture row into %s: %s", row.Table, err)
		}
	}
}
