package sweattools

// Filter returns the elements of input for which keep returns true, in the
// same order.
func Filter[T any](input []T, keep func(item T) bool) []T {
	output := []T{}

	for _, item := range input {
		if keep(item) {
			output = append(output, item)
		}
	}

	return output
}
