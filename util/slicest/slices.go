package slicest

// Map converts slice S of T into a slice of U.
func Map[T any, S ~[]T, U any](s S, fn func(T) U) []U {
	result := make([]U, 0, len(s))
	for _, t := range s {
		result = append(result, fn(t))
	}
	return result
}

// Filter returns the elements of S for which fn returns true.
func Filter[T any, S ~[]T](s S, fn func(T) bool) S {
	var result S
	for _, t := range s {
		if fn(t) {
			result = append(result, t)
		}
	}
	return result
}
