package sweat

import (
	"fmt"
	"sort"

	"github.com/tomvlk/sweat-orm/sweattools"
)

// Criteria is the batch form accepted by QueryBuilder.Where: column to value
// for an equality check, or column to a nested {operator: value} map.
type Criteria map[string]any

// WhereCondition is one recorded WHERE entry. Conditions always join with
// AND, in the order they were recorded.
type WhereCondition struct {
	Column   string
	Operator string
	Value    any
}

// normalizeWhere flattens the calling shapes of Where into condition triples.
// Map entries come out in sorted column order (and sorted operator order
// within a column) so the generated SQL is deterministic. Column existence
// and operator validity are the builder's concern; only shape problems are
// reported here, as deferred validation errors.
func normalizeWhere(criteria any, args []any) ([]WhereCondition, []error) {
	if column, ok := criteria.(string); ok {
		switch len(args) {
		case 1:
			return []WhereCondition{{Column: column, Operator: "=", Value: args[0]}}, nil
		case 2:
			operator, ok := args[0].(string)
			if !ok {
				return nil, []error{ValidationError{
					Call:   "where",
					Column: column,
					Detail: fmt.Sprintf("operator must be a string, got %T", args[0]),
				}}
			}

			return []WhereCondition{{Column: column, Operator: operator, Value: args[1]}}, nil
		default:
			return nil, []error{ValidationError{
				Call:   "where",
				Column: column,
				Detail: "expected a value, or an operator and a value",
			}}
		}
	}

	if mapped, ok := asCriteria(criteria); ok {
		if len(args) != 0 {
			return nil, []error{ValidationError{
				Call:   "where",
				Detail: "mapped criteria take no extra arguments",
			}}
		}

		return normalizeCriteria(mapped), nil
	}

	return nil, []error{ValidationError{
		Call:   "where",
		Detail: fmt.Sprintf("unsupported criteria type %T", criteria),
	}}
}

func normalizeCriteria(criteria map[string]any) []WhereCondition {
	conditions := []WhereCondition{}

	for _, column := range sortedKeys(criteria) {
		value := criteria[column]

		if nested, ok := asCriteria(value); ok {
			for _, operator := range sortedKeys(nested) {
				conditions = append(conditions, WhereCondition{
					Column:   column,
					Operator: operator,
					Value:    nested[operator],
				})
			}

			continue
		}

		conditions = append(conditions, WhereCondition{Column: column, Operator: "=", Value: value})
	}

	return conditions
}

func asCriteria(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case Criteria:
		return typed, true
	case map[string]any:
		return typed, true
	}

	return nil, false
}

func sortedKeys(criteria map[string]any) []string {
	keys := sweattools.Keys(criteria)
	sort.Strings(keys)

	return keys
}
