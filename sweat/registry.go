package sweat

import (
	"errors"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

// registry caches one Structure per entity type for the life of the manager.
// Indexing a type is pure and deterministic, so concurrent first lookups of
// the same type collapse into a single indexing run; afterwards lookups are a
// read-locked map hit.
type registry struct {
	mu         sync.RWMutex
	structures map[reflect.Type]*Structure
	group      singleflight.Group
}

func newRegistry() *registry {
	return &registry{
		structures: map[reflect.Type]*Structure{},
	}
}

func (registry *registry) structureOf(goType reflect.Type) (*Structure, error) {
	if goType == nil {
		return nil, errors.New("entity type is nil")
	}

	if goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}

	registry.mu.RLock()
	structure, found := registry.structures[goType]
	registry.mu.RUnlock()

	if found {
		return structure, nil
	}

	result, err, _ := registry.group.Do(structureKey(goType), func() (any, error) {
		// A flight that lost the race to an already completed one must
		// return the stored Structure, not index a second time.
		registry.mu.RLock()
		structure, found := registry.structures[goType]
		registry.mu.RUnlock()

		if found {
			return structure, nil
		}

		structure, err := indexStructure(goType)
		if err != nil {
			return nil, err
		}

		registry.mu.Lock()
		registry.structures[goType] = structure
		registry.mu.Unlock()

		return structure, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Structure), nil
}

// Type.String is not unique: types from packages with equal base names
// collide on it, so the flight key carries the full package path.
func structureKey(goType reflect.Type) string {
	return goType.PkgPath() + "." + goType.Name()
}
