package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
)

func lesson(teacherID string, durationMinutes int, hourlyRate string) schedule.Lesson {
	rate, _ := decimal.NewFromString(hourlyRate)
	return schedule.Lesson{
		ID:              "lesson-" + teacherID,
		TeacherID:       teacherID,
		Category:        schedule.CategoryInstrument,
		DurationMinutes: durationMinutes,
		HourlyRate:      rate,
		Active:          true,
	}
}

// =============================================================================
// PER-LESSON AMOUNT TESTS
// =============================================================================

func TestLessonAmount_FullHours(t *testing.T) {
	// 400/hour, 60-minute lessons, 5 occurrences = 2000
	amount := payroll.LessonAmount(lesson("t1", 60, "400"), 5)
	assert.True(t, amount.Equal(decimal.NewFromInt(2000)), "got %s", amount)
}

func TestLessonAmount_FractionalHour(t *testing.T) {
	// 400/hour, 45-minute lessons, 4 occurrences = 400 * 0.75 * 4 = 1200
	amount := payroll.LessonAmount(lesson("t1", 45, "400"), 4)
	assert.True(t, amount.Equal(decimal.NewFromInt(1200)), "got %s", amount)
}

func TestLessonAmount_ZeroOccurrences(t *testing.T) {
	amount := payroll.LessonAmount(lesson("t1", 60, "400"), 0)
	assert.True(t, amount.IsZero())
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregate_SumsPerTeacher(t *testing.T) {
	// GIVEN: Teacher t1 with two lessons, teacher t2 with one
	// THEN: One total per teacher

	lines := []payroll.LessonOccurrences{
		{Lesson: lesson("t1", 60, "400"), Count: 4},  // 1600
		{Lesson: lesson("t1", 45, "400"), Count: 4},  // 1200
		{Lesson: lesson("t2", 30, "500"), Count: 10}, // 2500
	}

	totals := payroll.Aggregate(lines)
	require.Len(t, totals, 2)
	assert.True(t, totals["t1"].Equal(decimal.NewFromInt(2800)), "t1: %s", totals["t1"])
	assert.True(t, totals["t2"].Equal(decimal.NewFromInt(2500)), "t2: %s", totals["t2"])
}

func TestAggregate_ExcludesZeroOccurrenceLessons(t *testing.T) {
	// A teacher whose only lesson never occurred must not appear at all.
	lines := []payroll.LessonOccurrences{
		{Lesson: lesson("t1", 60, "400"), Count: 0},
	}

	totals := payroll.Aggregate(lines)
	assert.Empty(t, totals)
}

func TestAggregate_RoundsOncePerTeacher(t *testing.T) {
	// GIVEN: Three 40-minute lessons at 100/hour: each is 66.666...
	// THEN: Sum unrounded (200), round once; not 66.67 * 3 = 200.01

	lines := []payroll.LessonOccurrences{
		{Lesson: lesson("t1", 40, "100"), Count: 1},
		{Lesson: lesson("t1", 40, "100"), Count: 1},
		{Lesson: lesson("t1", 40, "100"), Count: 1},
	}

	totals := payroll.Aggregate(lines)
	require.Contains(t, totals, "t1")
	assert.True(t, totals["t1"].Equal(decimal.NewFromInt(200)), "got %s", totals["t1"])
}

func TestAggregate_TwoDecimalPlaces(t *testing.T) {
	// 33.333... rounds half-up to 33.33
	lines := []payroll.LessonOccurrences{
		{Lesson: lesson("t1", 20, "100"), Count: 1},
	}

	totals := payroll.Aggregate(lines)
	expected, _ := decimal.NewFromString("33.33")
	assert.True(t, totals["t1"].Equal(expected), "got %s", totals["t1"])
}
