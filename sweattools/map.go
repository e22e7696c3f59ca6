package sweattools

// Map applies convert to every element of input and returns the results in
// the same order.
func Map[T any, Y any](input []T, convert func(item T) Y) []Y {
	output := make([]Y, 0, len(input))

	for _, item := range input {
		output = append(output, convert(item))
	}

	return output
}
