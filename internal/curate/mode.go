package curate

// Mode returns the most frequent element of values. Ties go to the element
// seen first. The second return is false for an empty slice.
func Mode[T comparable](values []T) (T, bool) {
	var best T
	if len(values) == 0 {
		return best, false
	}

	counts := make(map[T]int, len(values))
	bestCount := 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if c := counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best, true
}
