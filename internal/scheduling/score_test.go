package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	catalog := DefaultCatalog()
	sections := []Section{
		{ID: "a", InstructorID: "x"},
		{ID: "b", InstructorID: "x"},
		{ID: "c", InstructorID: "y"},
	}
	assignment := Assignment{
		"a": {SectionID: "a", Slot: TimeSlot{Day: Monday, Start: "09:00", End: "11:00"}},
		"b": {SectionID: "b", Slot: TimeSlot{Day: Tuesday, Start: "11:00", End: "13:00"}},
		"c": {SectionID: "c", Slot: TimeSlot{Day: Monday, Start: "13:00", End: "15:00"}},
	}

	// x spreads over 2 days: 20 points each; y over 1 day: 10 points.
	// a: 20+50, b: 20+25, c: 10+25 => 150/3 = 50.
	assert.Equal(t, 50, Score(sections, assignment, catalog))
}

func TestScoreRounds(t *testing.T) {
	sections := []Section{{ID: "a", InstructorID: "x"}, {ID: "b", InstructorID: "y"}}
	assignment := Assignment{
		"a": {SectionID: "a", Slot: TimeSlot{Day: Monday, Start: "09:00", End: "11:00"}},
		"b": {SectionID: "b", Slot: TimeSlot{Day: Monday, Start: "11:00", End: "13:00"}},
	}
	// a: 10+50 = 60, b: 10+25 = 35 => 47.5 rounds to 48.
	assert.Equal(t, 48, Score(sections, assignment, DefaultCatalog()))
}

func TestScoreEmpty(t *testing.T) {
	assert.Equal(t, 0, Score(nil, nil, DefaultCatalog()))
}

func TestScoreFullSpreadMorning(t *testing.T) {
	sections := make([]Section, 5)
	assignment := Assignment{}
	for i, day := range []Day{Monday, Tuesday, Wednesday, Thursday, Friday} {
		id := day.String()
		sections[i] = Section{ID: id, InstructorID: "x"}
		assignment[id] = Placement{SectionID: id, Slot: TimeSlot{Day: day, Start: "09:00", End: "11:00"}}
	}
	assert.Equal(t, 100, Score(sections, assignment, DefaultCatalog()))
}
