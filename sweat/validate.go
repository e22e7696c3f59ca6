package sweat

import (
	"reflect"
	"strings"
)

// operators is the exact set the query builder accepts. Matching is
// case-sensitive and there is no aliasing: `!=` and `<>` are both present
// and pass through to the generated SQL as written.
var operators = map[string]bool{
	"=":    true,
	"!=":   true,
	"LIKE": true,
	">":    true,
	"<":    true,
	">=":   true,
	"<=":   true,
	"IN":   true,
	"<>":   true,
}

// IsValidOperator reports whether op is a supported comparison operator.
func IsValidOperator(op string) bool {
	return operators[op]
}

// IsValidValue reports whether value can be bound for op: IN takes a
// non-empty sequence (slice or array), every other operator takes a single
// scalar. []byte counts as a scalar blob. An invalid operator makes any value
// invalid.
func IsValidValue(value any, op string) bool {
	if !IsValidOperator(op) {
		return false
	}

	if op == "IN" {
		// An empty sequence would render `IN ()`, which no dialect takes.
		return isSequence(value) && reflect.ValueOf(value).Len() > 0
	}

	return isScalar(value)
}

// IsValidSortDirection reports whether direction is ASC or DESC, ignoring
// case.
func IsValidSortDirection(direction string) bool {
	switch strings.ToUpper(direction) {
	case "ASC", "DESC":
		return true
	}

	return false
}

func isSequence(value any) bool {
	valueType := reflect.TypeOf(value)
	if valueType == nil {
		return false
	}

	if valueType.Kind() != reflect.Slice && valueType.Kind() != reflect.Array {
		return false
	}

	return valueType.Elem().Kind() != reflect.Uint8
}

func isScalar(value any) bool {
	valueType := reflect.TypeOf(value)
	if valueType == nil {
		return false
	}

	if isSequence(value) {
		return false
	}

	switch valueType.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan:
		return false
	}

	return true
}
