package sweat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tomvlk/sweat-orm/sweat/internal/utils"
)

// RunFunc is a hook invoked around statement execution with the prepared
// query and its positional arguments.
type RunFunc func(ctx context.Context, query string, args []any) error

// Connection wraps the database handle with statement preparation, row
// materialization and run hooks. It is the single execution path for
// everything the manager and its query builders do.
type Connection struct {
	driver       Driver
	db           *sql.DB
	preRunFuncs  []RunFunc
	postRunFuncs []RunFunc
}

func newConnection(driver Driver, db *sql.DB) *Connection {
	return &Connection{
		driver:       driver,
		db:           db,
		preRunFuncs:  []RunFunc{},
		postRunFuncs: []RunFunc{},
	}
}

// Ping verifies the underlying database is reachable.
func (connection *Connection) Ping() error {
	return connection.db.Ping()
}

// Dialect names the driver in use: "sqlite", "mysql" or "postgres".
func (connection *Connection) Dialect() string {
	return connection.driver.name()
}

// Run executes a named-parameter statement that returns no rows. It exists
// for work outside the entity path, such as schema setup and fixture loading.
func (connection *Connection) Run(ctx context.Context, query string, parameters map[string]any) (sql.Result, error) {
	return connection.runExecute(ctx, statement{Query: query, Parameters: parameters})
}

func (connection *Connection) runExecute(ctx context.Context, statement statement) (sql.Result, error) {
	query, args, err := utils.Prepare(
		statement.Query,
		statement.Parameters,
		connection.driver.usesNumberedParameters(),
	)
	if err != nil {
		return nil, err
	}

	if query == "" {
		return nil, ErrBlankQuery
	}

	for _, preRunFunc := range connection.preRunFuncs {
		if err := preRunFunc(ctx, query, args); err != nil {
			return nil, err
		}
	}

	result, err := connection.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute failed: %w", err)
	}

	for _, postRunFunc := range connection.postRunFuncs {
		if err := postRunFunc(ctx, query, args); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// runSelect executes a statement and materializes every returned row into
// target, which must be a pointer to a slice of structs. Result columns are
// matched to struct fields by db tag; JSON columns are decoded into their
// fields after scanning.
func (connection *Connection) runSelect(ctx context.Context, statement statement, target any) error {
	targetPointer := reflect.ValueOf(target)
	if targetPointer.Kind() != reflect.Pointer || targetPointer.IsNil() {
		return ErrNotPointer
	}

	targetValue := targetPointer.Elem()
	if targetValue.Kind() != reflect.Slice || targetValue.Type().Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to a slice of structs, got %T", target)
	}

	rowType := targetValue.Type().Elem()

	query, args, err := utils.Prepare(
		statement.Query,
		statement.Parameters,
		connection.driver.usesNumberedParameters(),
	)
	if err != nil {
		return err
	}

	if query == "" {
		return ErrBlankQuery
	}

	for _, preRunFunc := range connection.preRunFuncs {
		if err := preRunFunc(ctx, query, args); err != nil {
			return err
		}
	}

	rows, err := connection.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	plans, err := buildScanPlans(rowType, columns)
	if err != nil {
		return err
	}

	for rows.Next() {
		row := reflect.New(rowType).Elem()

		scanTargets := make([]any, len(plans))
		jsonBuffers := make([]*[]byte, len(plans))

		for i, plan := range plans {
			if plan.json {
				jsonBuffers[i] = new([]byte)
				scanTargets[i] = jsonBuffers[i]

				continue
			}

			scanTargets[i] = row.Field(plan.field).Addr().Interface()
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return err
		}

		for i, plan := range plans {
			if !plan.json || len(*jsonBuffers[i]) == 0 {
				continue
			}

			if err := json.Unmarshal(*jsonBuffers[i], row.Field(plan.field).Addr().Interface()); err != nil {
				return fmt.Errorf("column %s: %w", columns[i], err)
			}
		}

		targetValue.Set(reflect.Append(targetValue, row))
	}

	if err := rows.Err(); err != nil {
		return err
	}

	for _, postRunFunc := range connection.postRunFuncs {
		if err := postRunFunc(ctx, query, args); err != nil {
			return err
		}
	}

	return nil
}

type scanPlan struct {
	field int
	json  bool
}

func buildScanPlans(rowType reflect.Type, columns []string) ([]scanPlan, error) {
	fields := map[string]scanPlan{}

	for i := 0; i < rowType.NumField(); i++ {
		field := rowType.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := utils.ParseTag(field.Tag)
		if tag.Column == "" {
			continue
		}

		fields[tag.Column] = scanPlan{field: i, json: shouldBeJSON(field.Type)}
	}

	plans := make([]scanPlan, 0, len(columns))

	for _, column := range columns {
		plan, found := fields[column]
		if !found {
			return nil, fmt.Errorf("result column %s has no field on %s", column, rowType)
		}

		plans = append(plans, plan)
	}

	return plans, nil
}
