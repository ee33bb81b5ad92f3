package schedule

// =============================================================================
// INTERVAL OVERLAP - Pure predicate over two windows
// =============================================================================

// Overlaps reports whether two windows intersect: same weekday, overlapping
// time ranges, and overlapping validity ranges.
//
// Time ranges are half-open: a.Start < b.End && b.Start < a.End, so slots
// that merely touch (10:00-11:00 and 11:00-12:00) do not conflict.
//
// Validity ranges are inclusive on both ends; a nil ValidTo is unbounded
// future. Both tests are symmetric.
func Overlaps(a, b Window) bool {
	if a.Day != b.Day {
		return false
	}
	if !timesOverlap(a, b) {
		return false
	}
	return validityOverlaps(a, b)
}

func timesOverlap(a, b Window) bool {
	return a.Start < b.End && b.Start < a.End
}

func validityOverlaps(a, b Window) bool {
	// a.ValidFrom <= (b.ValidTo ?? +inf) && b.ValidFrom <= (a.ValidTo ?? +inf)
	if b.ValidTo != nil && a.ValidFrom.After(*b.ValidTo) {
		return false
	}
	if a.ValidTo != nil && b.ValidFrom.After(*a.ValidTo) {
		return false
	}
	return true
}
