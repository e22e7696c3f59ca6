package sweat

import (
	"context"
	"fmt"
	"reflect"
)

type fetchFunc func(ctx context.Context, target any) error

type lazyLoader interface {
	arm(fetch fetchFunc)
	targetType() reflect.Type
	relatesMany() bool
}

// Lazy is the declaration of a to-one relation. Fetching the owning entity
// arms the field, and Get then issues a follow-up query against the related
// entity. Nothing is cached: every Get queries again.
//
//	Author sweat.Lazy[Author] `rel:"local=author_id"`
//
// The rel tag names the owning entity's join column; the target join column
// defaults to the related entity's primary key and can be overridden with
// target=.
type Lazy[T any] struct {
	fetch  fetchFunc
	value  *T
	manual bool
}

// Get resolves the relation. It returns ErrNoRows when no related row exists
// and ErrUnresolvedRelation when the owning instance was never fetched and
// the field never Set.
func (lazy *Lazy[T]) Get(ctx context.Context) (T, error) {
	if lazy.manual {
		if lazy.value == nil {
			var zero T

			return zero, ErrNoRows
		}

		return *lazy.value, nil
	}

	if lazy.fetch == nil {
		var zero T

		return zero, ErrUnresolvedRelation
	}

	target := new(T)
	if err := lazy.fetch(ctx, target); err != nil {
		var zero T

		return zero, err
	}

	return *target, nil
}

// Set assigns the relation by hand; nil clears it. A hand-set value is
// returned by Get without querying, until the next fetch of the owning
// entity re-arms the field and discards it.
func (lazy *Lazy[T]) Set(value *T) {
	lazy.manual = true
	lazy.value = value
	lazy.fetch = nil
}

func (lazy *Lazy[T]) arm(fetch fetchFunc) {
	lazy.fetch = fetch
	lazy.manual = false
	lazy.value = nil
}

func (lazy *Lazy[T]) targetType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (lazy *Lazy[T]) relatesMany() bool {
	return false
}

// LazyMany is the declaration of a to-many relation.
//
//	Books sweat.LazyMany[Book] `rel:"target=author_id"`
//
// The rel tag names the related entity's join column; the owning side's join
// column defaults to its primary key and can be overridden with local=.
type LazyMany[T any] struct {
	fetch  fetchFunc
	value  []T
	manual bool
}

// Get resolves the relation, returning every related row. No related rows is
// an empty slice, not an error. Get returns ErrUnresolvedRelation when the
// owning instance was never fetched and the field never Set.
func (lazy *LazyMany[T]) Get(ctx context.Context) ([]T, error) {
	if lazy.manual {
		return lazy.value, nil
	}

	if lazy.fetch == nil {
		return nil, ErrUnresolvedRelation
	}

	target := []T{}
	if err := lazy.fetch(ctx, &target); err != nil {
		return nil, err
	}

	return target, nil
}

// Set assigns the related rows by hand. A hand-set value is returned by Get
// without querying, until the next fetch of the owning entity re-arms the
// field and discards it.
func (lazy *LazyMany[T]) Set(value []T) {
	lazy.manual = true
	lazy.value = value
	lazy.fetch = nil
}

func (lazy *LazyMany[T]) arm(fetch fetchFunc) {
	lazy.fetch = fetch
	lazy.manual = false
	lazy.value = nil
}

func (lazy *LazyMany[T]) targetType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (lazy *LazyMany[T]) relatesMany() bool {
	return true
}

// afterFetchSlice finalizes entities that came out of row materialization.
// Targets whose element type is not an entity, like ad hoc projection
// structs, pass through untouched.
func (manager *Manager) afterFetchSlice(target any) {
	slicePointer := reflect.ValueOf(target)
	if slicePointer.Kind() != reflect.Pointer || slicePointer.Elem().Kind() != reflect.Slice {
		return
	}

	slice := slicePointer.Elem()
	if slice.Len() == 0 {
		return
	}

	structure, err := manager.registry.structureOf(slice.Type().Elem())
	if err != nil {
		return
	}

	for i := 0; i < slice.Len(); i++ {
		manager.afterFetch(structure, slice.Index(i).Addr())
	}
}

func (manager *Manager) afterFetchOne(target any) {
	pointer := reflect.ValueOf(target)
	if pointer.Kind() != reflect.Pointer {
		return
	}

	structure, err := manager.registry.structureOf(pointer.Type())
	if err != nil {
		return
	}

	manager.afterFetch(structure, pointer)
}

// afterFetch marks a freshly materialized instance as saved, captures its
// session key, and arms every relation field for on-demand resolution. Arming
// discards whatever the field held before, so a fetched entity always
// resolves relations from storage.
func (manager *Manager) afterFetch(structure *Structure, pointer reflect.Value) {
	if carrier, ok := pointer.Interface().(recordCarrier); ok {
		key := any(nil)
		if primary, found := structure.primaryColumn(); found {
			key = pointer.Elem().Field(primary.Index).Interface()
		}

		carrier.inner().markSaved(key)
	}

	for _, relation := range structure.Relations {
		loader, ok := pointer.Elem().Field(relation.Index).Addr().Interface().(lazyLoader)
		if !ok {
			continue
		}

		loader.arm(manager.relationFetch(structure, relation, pointer))
	}
}

// relationFetch builds the solver for one relation of one fetched instance.
// The local join value is read when the relation is resolved, not when the
// instance is fetched, and the result is never retained.
func (manager *Manager) relationFetch(owner *Structure, relation Relation, pointer reflect.Value) fetchFunc {
	return func(ctx context.Context, target any) error {
		targetStructure, err := manager.registry.structureOf(relation.Target)
		if err != nil {
			return err
		}

		targetColumn := relation.TargetColumn
		if targetColumn == "" {
			primary, found := targetStructure.primaryColumn()
			if !found {
				return RelationError{
					Entity: owner.GoType.Name(),
					Field:  relation.Field,
					Detail: fmt.Sprintf("target %s has no primary key to join on", targetStructure.GoType.Name()),
				}
			}

			targetColumn = primary.Name
		}

		if !targetStructure.hasColumn(targetColumn) {
			return RelationError{
				Entity: owner.GoType.Name(),
				Field:  relation.Field,
				Detail: fmt.Sprintf("unknown target join column %q on %s", targetColumn, targetStructure.GoType.Name()),
			}
		}

		local, _ := owner.columnNamed(relation.LocalColumn)
		localValue := pointer.Elem().Field(local.Index).Interface()

		builder := newQueryBuilder(manager, targetStructure).Where(targetColumn, localValue)
		if relation.Many {
			return builder.All(ctx, target)
		}

		return builder.One(ctx, target)
	}
}
