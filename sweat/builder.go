package sweat

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomvlk/sweat-orm/sweattools"
)

// QueryBuilder accumulates SELECT state through chained calls and executes on
// All or One. Bad input does not break the chain: problems are queued and
// surface joined together once a terminal call runs. A builder belongs to one
// goroutine and one query; discard it after All or One.
type QueryBuilder struct {
	manager   *Manager
	structure *Structure

	selects       string
	from          string
	conditions    []WhereCondition
	sortColumn    string
	sortDirection string
	limitCount    *int
	limitOffset   *int

	deferred []error
}

func newQueryBuilder(manager *Manager, structure *Structure) *QueryBuilder {
	builder := &QueryBuilder{manager: manager, structure: structure}

	if structure != nil {
		driver := manager.connection.driver

		builder.selects = strings.Join(sweattools.Map(structure.Columns, func(column Column) string {
			return driver.quoteIdentifier(column.Name)
		}), ", ")
		builder.from = driver.quoteIdentifier(structure.Table)
	}

	return builder
}

// Select replaces the generated column list with a raw SQL fragment. The
// fragment is not validated against the entity's columns.
func (builder *QueryBuilder) Select(fragment string) *QueryBuilder {
	builder.selects = fragment

	return builder
}

// From replaces the generated table fragment.
func (builder *QueryBuilder) From(fragment string) *QueryBuilder {
	builder.from = fragment

	return builder
}

// Where records filter conditions. Three shapes are accepted:
//
//	Where("title", value)              // title = value
//	Where("price", ">", value)         // explicit operator
//	Where(sweat.Criteria{...})         // batch: column to value or to {op: value}
//
// A condition on an unknown column queues a validation error and is skipped.
// A condition whose operator is unsupported, or whose value does not fit the
// operator, is skipped without an error. Either way the rest of the chain
// keeps working. Conditions join with AND in the order they were recorded.
func (builder *QueryBuilder) Where(criteria any, args ...any) *QueryBuilder {
	conditions, problems := normalizeWhere(criteria, args)
	builder.deferred = append(builder.deferred, problems...)

	for _, condition := range conditions {
		if builder.structure != nil && !builder.structure.hasColumn(condition.Column) {
			builder.deferred = append(builder.deferred, ValidationError{
				Call:   "where",
				Column: condition.Column,
				Detail: fmt.Sprintf("unknown column on %s", builder.structure.Table),
			})

			continue
		}

		if !IsValidValue(condition.Value, condition.Operator) {
			continue
		}

		builder.conditions = append(builder.conditions, condition)
	}

	return builder
}

// Sort sets the ORDER BY column and direction, ASC when no direction is
// given. An invalid direction queues a validation error; an unknown column is
// ignored without one. Both leave the previous sort untouched.
func (builder *QueryBuilder) Sort(column string, direction ...string) *QueryBuilder {
	normalized := "ASC"
	if len(direction) > 0 {
		normalized = strings.ToUpper(direction[0])
	}

	if !IsValidSortDirection(normalized) {
		builder.deferred = append(builder.deferred, ValidationError{
			Call:   "sort",
			Column: column,
			Detail: fmt.Sprintf("invalid direction %q", direction[0]),
		})

		return builder
	}

	if builder.structure != nil && !builder.structure.hasColumn(column) {
		return builder
	}

	builder.sortColumn = column
	builder.sortDirection = normalized

	return builder
}

// Limit caps the number of returned rows. A negative count queues a
// validation error and leaves the limit unset.
func (builder *QueryBuilder) Limit(count int) *QueryBuilder {
	if count < 0 {
		builder.deferred = append(builder.deferred, ValidationError{
			Call:   "limit",
			Detail: fmt.Sprintf("must not be negative, got %d", count),
		})

		return builder
	}

	builder.limitCount = &count

	return builder
}

// Offset skips rows before the limit window. It only takes effect together
// with Limit; an offset on its own renders no LIMIT fragment. A negative
// offset queues a validation error and leaves the offset unset.
func (builder *QueryBuilder) Offset(count int) *QueryBuilder {
	if count < 0 {
		builder.deferred = append(builder.deferred, ValidationError{
			Call:   "offset",
			Detail: fmt.Sprintf("must not be negative, got %d", count),
		})

		return builder
	}

	builder.limitOffset = &count

	return builder
}

// All executes the accumulated query and materializes every matching row into
// target, a pointer to a slice of entity structs. Queued validation errors
// surface here, joined in the order they were recorded, and nothing runs when
// there are any.
func (builder *QueryBuilder) All(ctx context.Context, target any) error {
	if err := builder.takeDeferred(); err != nil {
		return err
	}

	statement := generateSelect(builder.manager.connection.driver, builder)

	if err := builder.manager.connection.runSelect(ctx, statement, target); err != nil {
		return err
	}

	builder.manager.afterFetchSlice(target)

	return nil
}

// One executes the very same statement All would run, with no limit injected,
// and copies the first returned row into target. It returns ErrNoRows when
// nothing matched.
func (builder *QueryBuilder) One(ctx context.Context, target any) error {
	if err := builder.takeDeferred(); err != nil {
		return err
	}

	targetPointer := reflect.ValueOf(target)
	if targetPointer.Kind() != reflect.Pointer || targetPointer.IsNil() {
		return ErrNotPointer
	}

	statement := generateSelect(builder.manager.connection.driver, builder)

	rows := reflect.New(reflect.SliceOf(targetPointer.Type().Elem()))
	if err := builder.manager.connection.runSelect(ctx, statement, rows.Interface()); err != nil {
		return err
	}

	if rows.Elem().Len() == 0 {
		return ErrNoRows
	}

	targetPointer.Elem().Set(rows.Elem().Index(0))

	builder.manager.afterFetchOne(target)

	return nil
}

func (builder *QueryBuilder) takeDeferred() error {
	if len(builder.deferred) == 0 {
		return nil
	}

	return errors.Join(builder.deferred...)
}
