package sweat

import (
	"context"
	"fmt"
	"reflect"
)

// Manager is the entry point of the package. It owns the database connection
// and the structure registry, hands out query builders, and implements the
// get, save and delete lifecycle of entities.
//
// A Manager is safe for concurrent use. The builders it hands out are not.
type Manager struct {
	registry   *registry
	connection *Connection
}

// New opens the driver and builds a Manager around the handle.
func New(driver Driver, configFuncs ...ConfigFunc) (*Manager, error) {
	db, err := driver.Open()
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		registry:   newRegistry(),
		connection: newConnection(driver, db),
	}

	for _, configFunc := range configFuncs {
		if err := configFunc(manager); err != nil {
			return nil, err
		}
	}

	return manager, nil
}

// Connection exposes the execution layer, mainly for schema setup and
// fixture loading in tests.
func (manager *Manager) Connection() *Connection {
	return manager.connection
}

// Close releases the underlying database handle.
func (manager *Manager) Close() error {
	return manager.connection.db.Close()
}

// Find returns a query builder scoped to the prototype's entity type. A
// prototype that is not a valid entity queues the problem on the builder, so
// it surfaces through All or One like any other input error.
func (manager *Manager) Find(prototype Entity) *QueryBuilder {
	structure, err := manager.registry.structureOf(reflect.TypeOf(prototype))

	builder := newQueryBuilder(manager, structure)
	if err != nil {
		builder.deferred = append(builder.deferred, err)
	}

	return builder
}

// Get loads the entity stored under the given primary key value into target.
// It is shorthand for Find(target).Where(pk, key).One(ctx, target) and
// returns ErrNoRows when no such row exists.
func (manager *Manager) Get(ctx context.Context, target Entity, key any) error {
	_, structure, _, err := manager.unwrap(target)
	if err != nil {
		return err
	}

	primary, found := structure.primaryColumn()
	if !found {
		return ErrNoPrimaryKey
	}

	return manager.Find(target).Where(primary.Name, key).One(ctx, target)
}

// Save stores the entity: an INSERT when the instance is not yet backed by a
// row, an UPDATE keyed on the captured session key when it is. After a
// successful INSERT the instance is marked saved and a generated key is
// written back to its primary key field. A failed INSERT leaves the instance
// unsaved, so a later Save inserts again.
func (manager *Manager) Save(ctx context.Context, entity Entity) error {
	value, structure, record, err := manager.unwrap(entity)
	if err != nil {
		return err
	}

	if record.Saved() {
		statement, err := generateUpdate(manager.connection.driver, structure, value, record.Key())
		if err != nil {
			return err
		}

		_, err = manager.connection.runExecute(ctx, statement)

		return err
	}

	statement, err := generateInsert(manager.connection.driver, structure, value)
	if err != nil {
		return err
	}

	key, err := manager.runInsert(ctx, structure, value, statement)
	if err != nil {
		return err
	}

	record.markSaved(key)

	return nil
}

// Delete removes the stored row behind the entity, keyed on the captured
// session key. An instance that was never fetched or saved has no row, so
// deleting it returns ErrNotSaved without touching the database. The instance
// keeps its saved state afterwards; re-saving it updates a row that no longer
// exists.
func (manager *Manager) Delete(ctx context.Context, entity Entity) error {
	_, structure, record, err := manager.unwrap(entity)
	if err != nil {
		return err
	}

	if !record.Saved() {
		return ErrNotSaved
	}

	statement, err := generateDelete(manager.connection.driver, structure, record.Key())
	if err != nil {
		return err
	}

	_, err = manager.connection.runExecute(ctx, statement)

	return err
}

func (manager *Manager) unwrap(entity Entity) (reflect.Value, *Structure, *Record, error) {
	pointer := reflect.ValueOf(entity)
	if pointer.Kind() != reflect.Pointer || pointer.IsNil() {
		return reflect.Value{}, nil, nil, ErrNotPointer
	}

	structure, err := manager.registry.structureOf(pointer.Type())
	if err != nil {
		return reflect.Value{}, nil, nil, err
	}

	carrier, ok := entity.(recordCarrier)
	if !ok {
		return reflect.Value{}, nil, nil, fmt.Errorf("entity type %s: %w", structure.GoType, ErrMissingRecord)
	}

	return pointer.Elem(), structure, carrier.inner(), nil
}

// runInsert executes an INSERT and returns the session key for the new row.
// Drivers reporting keys through LastInsertId fall back to the entity's own
// primary key field when the result carries no generated value; drivers using
// RETURNING scan the key from the statement itself.
func (manager *Manager) runInsert(ctx context.Context, structure *Structure, value reflect.Value, stmt statement) (any, error) {
	primary, hasPrimary := structure.primaryColumn()

	if hasPrimary && !manager.connection.driver.usesLastInsertId() {
		returned := []struct {
			ID int64 `db:"id"`
		}{}

		if err := manager.connection.runSelect(ctx, stmt, &returned); err != nil {
			return nil, err
		}

		if len(returned) == 0 {
			return nil, fmt.Errorf("insert into %s returned no key", structure.Table)
		}

		return writeGeneratedKey(primary, value, returned[0].ID), nil
	}

	result, err := manager.connection.runExecute(ctx, stmt)
	if err != nil {
		return nil, err
	}

	if !hasPrimary {
		return nil, nil
	}

	generated, err := result.LastInsertId()
	if err != nil {
		generated = 0
	}

	return writeGeneratedKey(primary, value, generated), nil
}

// writeGeneratedKey stores a driver-generated key into the primary key field
// when there is one to store, and returns the field's value either way. A
// zero generated key means the entity supplied its own.
func writeGeneratedKey(primary Column, value reflect.Value, generated int64) any {
	field := value.Field(primary.Index)

	if primary.AutoIncrement && generated != 0 && field.CanInt() {
		field.SetInt(generated)
	}

	return field.Interface()
}
