package payroll

import (
	"github.com/shopspring/decimal"

	"github.com/harmonia/lesson-engine/schedule"
)

// =============================================================================
// EARNINGS AGGREGATION
// =============================================================================

// LessonOccurrences pairs a lesson with how many times it actually took
// place in the period, as counted by occurrence expansion.
type LessonOccurrences struct {
	Lesson schedule.Lesson
	Count  int
}

var minutesPerHour = decimal.NewFromInt(60)

// LessonAmount is the unrounded earnings for one lesson over the period:
// hourly rate * (duration / 60) * occurrence count.
func LessonAmount(lesson schedule.Lesson, count int) decimal.Decimal {
	return lesson.HourlyRate.
		Mul(decimal.NewFromInt(int64(lesson.DurationMinutes))).
		Div(minutesPerHour).
		Mul(decimal.NewFromInt(int64(count)))
}

// Aggregate folds per-lesson occurrence counts into per-teacher totals.
// Lessons with zero occurrences contribute nothing; teachers whose total
// would be zero are absent from the result. Accumulation stays unrounded;
// only the final per-teacher total is rounded half-up to the currency's
// two minor-unit digits.
func Aggregate(lines []LessonOccurrences) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, line := range lines {
		if line.Count <= 0 {
			continue
		}
		amount := LessonAmount(line.Lesson, line.Count)
		if t, ok := totals[line.Lesson.TeacherID]; ok {
			totals[line.Lesson.TeacherID] = t.Add(amount)
		} else {
			totals[line.Lesson.TeacherID] = amount
		}
	}

	for teacherID, total := range totals {
		rounded := total.Round(2)
		if rounded.IsZero() {
			delete(totals, teacherID)
			continue
		}
		totals[teacherID] = rounded
	}
	return totals
}
