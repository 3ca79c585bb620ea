package util

/**
 * Generic shared utilities
 */

// SliceIncludes returns true is slice includes value
func SliceIncludes[T comparable](s []T, val T) bool {
	for _, v := range s {
		if v == val {
			return true
		}
	}
	return false
}

// Unique returns s without repeated values, keeping first occurrences
func Unique[T comparable](s []T) []T {
	out := []T{}

	for _, v := range s {
		if !SliceIncludes(out, v) {
			out = append(out, v)
		}
	}

	return out
}
