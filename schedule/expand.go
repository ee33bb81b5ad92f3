package schedule

// =============================================================================
// OCCURRENCE EXPANSION - Slot -> concrete calendar dates
// =============================================================================

// Expand produces the slot's concrete occurrences within the period, in
// ascending date order. The slice is built fresh on every call; nothing is
// cached.
//
// A one-off slot yields exactly one occurrence at ValidFrom when ValidFrom
// falls inside [period.Start, period.End), otherwise none.
//
// A recurring slot yields one occurrence per calendar date whose weekday
// matches the slot's day within
// [max(period.Start, ValidFrom), min(period.End, ValidTo ?? period.End)).
//
// This counts actual weekly repetitions, not schedule rows: the settlement
// engine relies on it to answer "how many times did this lesson happen".
func Expand(slot Slot, period Period) []Occurrence {
	if period.IsEmpty() {
		return nil
	}

	if !slot.Recurring {
		if period.Contains(slot.ValidFrom) {
			return []Occurrence{occurrenceOn(slot, slot.ValidFrom)}
		}
		return nil
	}

	start := period.Start
	if slot.ValidFrom.After(start) {
		start = slot.ValidFrom
	}
	end := period.End
	if slot.ValidTo != nil && slot.ValidTo.Before(end) {
		end = *slot.ValidTo
	}
	if !start.Before(end) {
		return nil
	}

	// Advance to the first matching weekday, then step a week at a time.
	offset := (int(slot.Day) - int(start.Weekday()) + 7) % 7
	var out []Occurrence
	for d := start.AddDays(offset); d.Before(end); d = d.AddDays(7) {
		out = append(out, occurrenceOn(slot, d))
	}
	return out
}

func occurrenceOn(slot Slot, d Date) Occurrence {
	return Occurrence{
		SlotID:   slot.ID,
		LessonID: slot.LessonID,
		Date:     d,
		Start:    slot.Start,
		End:      slot.End,
	}
}
