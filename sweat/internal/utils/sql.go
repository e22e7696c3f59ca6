package utils

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var (
	parameterFinder = regexp.MustCompile(`(?m):\w+`)
	spaceFinder     = regexp.MustCompile(`(?m)\s*^\s+`)
)

// Prepare renders a named-parameter statement into driver-ready positional
// form. Slice and array parameters expand into one placeholder per element,
// in encounter order, so the returned argument list always lines up with the
// placeholders it emits. []byte stays a single blob argument.
func Prepare(statement string, parameters map[string]any, numberedParameters bool) (string, []any, error) {
	statement = strings.TrimSpace(spaceFinder.ReplaceAllString(statement, " "))

	args := []any{}
	counter := 0
	placeholder := func() string {
		counter++
		if !numberedParameters {
			return "?"
		}

		return fmt.Sprintf("$%d", counter)
	}

	prepared := parameterFinder.ReplaceAllStringFunc(statement, func(name string) string {
		value, found := parameters[name]
		if !found {
			return name
		}

		valueType := reflect.TypeOf(value)
		if valueType != nil &&
			(valueType.Kind() == reflect.Slice || valueType.Kind() == reflect.Array) &&
			valueType.Elem().Kind() != reflect.Uint8 {
			valueOf := reflect.ValueOf(value)

			expanded := []string{}
			for i := 0; i < valueOf.Len(); i++ {
				expanded = append(expanded, placeholder())
				args = append(args, valueOf.Index(i).Interface())
			}

			return strings.Join(expanded, ", ")
		}

		args = append(args, value)

		return placeholder()
	})

	return prepared, args, nil
}
