package sweat

import (
	"fmt"
	"reflect"

	"github.com/tomvlk/sweat-orm/sweat/internal/utils"
)

var (
	entityType = reflect.TypeOf((*Entity)(nil)).Elem()
	recordType = reflect.TypeOf((*recordCarrier)(nil)).Elem()
)

// Structure is the resolved storage metadata for one entity type: its table,
// its column mapping, and its declared relations. A Structure is built once
// per type, cached by the manager's registry, and never mutated afterwards.
type Structure struct {
	Table     string
	GoType    reflect.Type
	Columns   []Column
	Relations []Relation

	columnIndex map[string]int
	primary     int
}

// Column describes one struct field mapped to a table column.
type Column struct {
	Name          string
	Field         string
	Index         int
	Type          reflect.Type
	PrimaryKey    bool
	AutoIncrement bool
	ReadOnly      bool
}

// Relation describes one lazy relation declared through a Lazy or LazyMany
// field. Relations are fetch-on-access only; there is no eager loading and no
// caching of resolved values.
type Relation struct {
	Field        string
	Index        int
	Target       reflect.Type
	Many         bool
	LocalColumn  string
	TargetColumn string
}

func (structure *Structure) hasColumn(name string) bool {
	_, found := structure.columnIndex[name]

	return found
}

func (structure *Structure) columnNamed(name string) (Column, bool) {
	index, found := structure.columnIndex[name]
	if !found {
		return Column{}, false
	}

	return structure.Columns[index], true
}

func (structure *Structure) primaryColumn() (Column, bool) {
	if structure.primary < 0 {
		return Column{}, false
	}

	return structure.Columns[structure.primary], true
}

// indexStructure inspects an entity type once and resolves its table name,
// column mapping and relation declarations. Everything that can be rejected
// up front is rejected here, so later operations can trust the Structure.
func indexStructure(goType reflect.Type) (*Structure, error) {
	if goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}

	if goType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity type %s is not a struct", goType)
	}

	pointerType := reflect.PointerTo(goType)
	if !pointerType.Implements(entityType) {
		return nil, fmt.Errorf("entity type %s does not implement sweat.Entity", goType)
	}

	if !pointerType.Implements(recordType) {
		return nil, fmt.Errorf("entity type %s: %w", goType, ErrMissingRecord)
	}

	structure := &Structure{
		Table:       reflect.New(goType).Interface().(Entity).TableName(),
		GoType:      goType,
		columnIndex: map[string]int{},
		primary:     -1,
	}

	if structure.Table == "" {
		return nil, fmt.Errorf("entity type %s returns an empty table name", goType)
	}

	lazyFields := []int{}

	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}

		if _, isLazy := reflect.New(field.Type).Interface().(lazyLoader); isLazy {
			lazyFields = append(lazyFields, i)

			continue
		}

		tag := utils.ParseTag(field.Tag)
		if tag.Column == "" {
			continue
		}

		if utils.ParseRelTag(field.Tag).Declared {
			return nil, RelationError{
				Entity: goType.Name(),
				Field:  field.Name,
				Detail: "rel tag on a field that is not Lazy or LazyMany",
			}
		}

		structure.columnIndex[tag.Column] = len(structure.Columns)
		if tag.PrimaryKey && structure.primary < 0 {
			structure.primary = len(structure.Columns)
		}

		structure.Columns = append(structure.Columns, Column{
			Name:          tag.Column,
			Field:         field.Name,
			Index:         i,
			Type:          field.Type,
			PrimaryKey:    tag.PrimaryKey,
			AutoIncrement: tag.AutoIncrement,
			ReadOnly:      tag.ReadOnly,
		})
	}

	if len(structure.Columns) == 0 {
		return nil, fmt.Errorf("entity type %s declares no columns", goType)
	}

	// Relations are resolved after the full column set is known, so a
	// relation may reference a column declared below it.
	for _, i := range lazyFields {
		relation, err := indexRelation(structure, goType.Field(i), i)
		if err != nil {
			return nil, err
		}

		structure.Relations = append(structure.Relations, relation)
	}

	return structure, nil
}

// indexRelation validates one Lazy or LazyMany field. The local join column
// is checked here; the target join column can only be checked against the
// target's own Structure and is resolved when the relation is first solved.
func indexRelation(structure *Structure, field reflect.StructField, index int) (Relation, error) {
	entityName := structure.GoType.Name()

	loader := reflect.New(field.Type).Interface().(lazyLoader)

	tag := utils.ParseRelTag(field.Tag)
	if !tag.Declared {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: "missing rel tag",
		}
	}

	if utils.ParseTag(field.Tag).Column != "" {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: "relation fields do not map to a column",
		}
	}

	target := loader.targetType()
	if target.Kind() != reflect.Struct || !reflect.PointerTo(target).Implements(entityType) {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: fmt.Sprintf("target type %s is not an entity", target),
		}
	}

	relation := Relation{
		Field:        field.Name,
		Index:        index,
		Target:       target,
		Many:         loader.relatesMany(),
		LocalColumn:  tag.Local,
		TargetColumn: tag.Target,
	}

	if relation.Many && relation.TargetColumn == "" {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: "LazyMany requires a target join column",
		}
	}

	if !relation.Many && relation.LocalColumn == "" {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: "Lazy requires a local join column",
		}
	}

	if relation.LocalColumn == "" {
		primary, found := structure.primaryColumn()
		if !found {
			return Relation{}, RelationError{
				Entity: entityName,
				Field:  field.Name,
				Detail: "no local join column and no primary key to default to",
			}
		}

		relation.LocalColumn = primary.Name
	}

	if !structure.hasColumn(relation.LocalColumn) {
		return Relation{}, RelationError{
			Entity: entityName,
			Field:  field.Name,
			Detail: fmt.Sprintf("unknown local join column %q", relation.LocalColumn),
		}
	}

	return relation, nil
}
