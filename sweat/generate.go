package sweat

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// statement pairs a named-parameter query with its parameter values. It is
// rendered into driver-ready positional form by utils.Prepare when it runs,
// which is also where IN sequences expand into per-element placeholders.
type statement struct {
	Query      string
	Parameters map[string]any
}

// generateSelect renders builder state into a single SELECT statement.
// Fragment order is fixed: WHERE, then ORDER BY, then LIMIT.
func generateSelect(driver Driver, builder *QueryBuilder) statement {
	query := fmt.Sprintf("SELECT %s FROM %s", builder.selects, builder.from)

	whereFragment, parameters := generateWhere(driver, builder.conditions)
	if whereFragment != "" {
		query += " WHERE " + whereFragment
	}

	if orderFragment := generateOrder(driver, builder.sortColumn, builder.sortDirection); orderFragment != "" {
		query += " ORDER BY " + orderFragment
	}

	if limitFragment := generateLimit(builder.limitCount, builder.limitOffset); limitFragment != "" {
		query += " LIMIT " + limitFragment
	}

	return statement{Query: query, Parameters: parameters}
}

// generateWhere joins the recorded conditions with AND. Parameters are keyed
// by condition position, so equal column names or equal values never collide.
func generateWhere(driver Driver, conditions []WhereCondition) (string, map[string]any) {
	parts := []string{}
	parameters := map[string]any{}

	for i, condition := range conditions {
		key := fmt.Sprintf(":w%d", i)
		parameters[key] = condition.Value

		if condition.Operator == "IN" {
			parts = append(parts, fmt.Sprintf("%s IN (%s)", driver.quoteIdentifier(condition.Column), key))

			continue
		}

		parts = append(parts, fmt.Sprintf(
			"%s %s %s",
			driver.quoteIdentifier(condition.Column),
			condition.Operator,
			key,
		))
	}

	return strings.Join(parts, " AND "), parameters
}

func generateOrder(driver Driver, column string, direction string) string {
	if column == "" {
		return ""
	}

	return driver.quoteIdentifier(column) + " " + direction
}

// generateLimit renders the LIMIT fragment. An offset without a count renders
// nothing: the statement stays unbounded rather than guessing a count.
func generateLimit(count *int, offset *int) string {
	if count == nil {
		return ""
	}

	if offset == nil {
		return fmt.Sprintf("%d", *count)
	}

	return fmt.Sprintf("%d OFFSET %d", *count, *offset)
}

// generateInsert renders an INSERT for every writable column of the entity.
// Auto increment and read-only columns stay out of the column list. When the
// driver reports generated keys through a RETURNING clause, one is appended
// for the primary key.
func generateInsert(driver Driver, structure *Structure, entity reflect.Value) (statement, error) {
	columns := []string{}
	values := []string{}
	parameters := map[string]any{}

	for _, column := range structure.Columns {
		if column.ReadOnly || column.AutoIncrement {
			continue
		}

		key := ":c_" + column.Name
		columns = append(columns, driver.quoteIdentifier(column.Name))
		values = append(values, key)

		value, err := bindValue(column, entity.Field(column.Index))
		if err != nil {
			return statement{}, err
		}

		parameters[key] = value
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		driver.quoteIdentifier(structure.Table),
		strings.Join(columns, ", "),
		strings.Join(values, ", "),
	)

	if primary, found := structure.primaryColumn(); found {
		query += driver.returningClause(primary.Name)
	}

	return statement{Query: query, Parameters: parameters}, nil
}

// generateUpdate renders an UPDATE of every writable non-key column, keyed on
// the session key captured when the entity was fetched or first saved.
func generateUpdate(driver Driver, structure *Structure, entity reflect.Value, key any) (statement, error) {
	primary, found := structure.primaryColumn()
	if !found {
		return statement{}, ErrNoPrimaryKey
	}

	sets := []string{}
	parameters := map[string]any{":k_pk": key}

	for _, column := range structure.Columns {
		if column.ReadOnly || column.PrimaryKey {
			continue
		}

		paramKey := ":c_" + column.Name
		sets = append(sets, fmt.Sprintf("%s = %s", driver.quoteIdentifier(column.Name), paramKey))

		value, err := bindValue(column, entity.Field(column.Index))
		if err != nil {
			return statement{}, err
		}

		parameters[paramKey] = value
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = :k_pk",
		driver.quoteIdentifier(structure.Table),
		strings.Join(sets, ", "),
		driver.quoteIdentifier(primary.Name),
	)

	return statement{Query: query, Parameters: parameters}, nil
}

func generateDelete(driver Driver, structure *Structure, key any) (statement, error) {
	primary, found := structure.primaryColumn()
	if !found {
		return statement{}, ErrNoPrimaryKey
	}

	return statement{
		Query: fmt.Sprintf(
			"DELETE FROM %s WHERE %s = :k_pk",
			driver.quoteIdentifier(structure.Table),
			driver.quoteIdentifier(primary.Name),
		),
		Parameters: map[string]any{":k_pk": key},
	}, nil
}

// bindValue converts a struct field into a driver-bindable value. Struct and
// slice columns are stored as JSON text, mirroring how they are read back.
func bindValue(column Column, field reflect.Value) (any, error) {
	if !shouldBeJSON(column.Type) {
		return field.Interface(), nil
	}

	encoded, err := json.Marshal(field.Interface())
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column.Name, err)
	}

	return string(encoded), nil
}

// shouldBeJSON reports whether a column of this type round-trips through a
// JSON text column: slices except []byte, and structs other than time.Time.
func shouldBeJSON(fieldType reflect.Type) bool {
	if fieldType.Kind() == reflect.Pointer {
		fieldType = fieldType.Elem()
	}

	switch fieldType.Kind() {
	case reflect.Slice:
		return fieldType.Elem().Kind() != reflect.Uint8
	case reflect.Struct:
		return fieldType != reflect.TypeOf((*time.Time)(nil)).Elem()
	}

	return false
}
