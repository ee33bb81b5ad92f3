package schedule

import "sort"

// =============================================================================
// CONFLICT CHECKER - Gate for slot writes
// =============================================================================

// CheckConflict decides whether a candidate slot may join the given set of
// active slots, all of which must belong to the same room as the candidate's
// lesson. It returns nil on acceptance or a *ConflictError naming the first
// conflicting slot in ascending slot-id order.
//
// The candidate itself (on create) or its prior version (on update) is
// excluded by id. CheckConflict is a pure decision function: the caller must
// run it and the subsequent insert/update inside one store transaction so no
// concurrent write can slip in between check and commit.
func CheckConflict(candidate Slot, active []Slot) error {
	sorted := make([]Slot, len(active))
	copy(sorted, active)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	w := candidate.Window()
	for _, other := range sorted {
		if other.ID == candidate.ID {
			continue
		}
		if Overlaps(w, other.Window()) {
			return &ConflictError{SlotID: candidate.ID, ConflictingSlotID: other.ID}
		}
	}
	return nil
}
