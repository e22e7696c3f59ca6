package sweattools

// Keys returns the keys of input in map iteration order. Sort the result
// when a stable order matters.
func Keys[K comparable, V any](input map[K]V) []K {
	output := make([]K, 0, len(input))

	for key := range input {
		output = append(output, key)
	}

	return output
}
