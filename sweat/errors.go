package sweat

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRows is returned when a single-row operation matched nothing.
	ErrNoRows = errors.New("no rows found")

	// ErrNotSaved is returned when deleting an entity that was never
	// fetched or saved, so no stored row can correspond to it.
	ErrNotSaved = errors.New("entity is not saved")

	// ErrNoPrimaryKey is returned by operations that need a primary key
	// column on the entity and found none.
	ErrNoPrimaryKey = errors.New("entity has no primary key column")

	// ErrUnresolvedRelation is returned by Lazy and LazyMany getters on an
	// entity instance that was never fetched through a manager.
	ErrUnresolvedRelation = errors.New("relation is not resolved")

	// ErrBlankQuery is returned when a statement prepared for execution
	// turned out empty.
	ErrBlankQuery = errors.New("blank query")

	// ErrNotPointer is returned when an entity or scan target is not a
	// non-nil pointer.
	ErrNotPointer = errors.New("target must be a non-nil pointer")

	// ErrMissingRecord is returned when an entity struct does not embed
	// sweat.Record, leaving it nowhere to keep session state.
	ErrMissingRecord = errors.New("entity does not embed sweat.Record")
)

// ValidationError records a query builder call that received bad input. The
// builder queues these instead of failing the chain; they surface joined
// together once All or One runs.
type ValidationError struct {
	Call   string
	Column string
	Detail string
}

func (err ValidationError) Error() string {
	if err.Column == "" {
		return fmt.Sprintf("%s: %s", err.Call, err.Detail)
	}

	return fmt.Sprintf("%s: column %q: %s", err.Call, err.Column, err.Detail)
}

// RelationError reports a bad relation declaration or a relation that cannot
// be resolved. Unlike validation errors these are returned immediately.
type RelationError struct {
	Entity string
	Field  string
	Detail string
}

func (err RelationError) Error() string {
	return fmt.Sprintf("relation %s.%s: %s", err.Entity, err.Field, err.Detail)
}
