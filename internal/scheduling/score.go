package scheduling

import "math"

const (
	distributionWeight = 50.0
	preferredWeight    = 50.0
	fallbackWeight     = 25.0
)

// Score rates an assignment against the soft preferences on a 0–100 scale. Each
// placement earns up to 50 points for how many catalog days its instructor's
// sections spread across, plus 50 points when it starts at the catalog's earliest
// start time (25 otherwise). The mean over all placements is rounded.
// The score is informational only; it never rejects a solution.
func Score(sections []Section, assignment Assignment, catalog Catalog) int {
	if len(assignment) == 0 {
		return 0
	}
	dayCount := len(catalog.days)
	if dayCount == 0 {
		dayCount = 5
	}

	instructorDays := make(map[string]map[Day]struct{})
	for _, sec := range sections {
		p, ok := assignment[sec.ID]
		if !ok {
			continue
		}
		days := instructorDays[sec.InstructorID]
		if days == nil {
			days = make(map[Day]struct{})
			instructorDays[sec.InstructorID] = days
		}
		days[p.Slot.Day] = struct{}{}
	}

	total := 0.0
	counted := 0
	for _, sec := range sections {
		p, ok := assignment[sec.ID]
		if !ok {
			continue
		}
		distribution := float64(len(instructorDays[sec.InstructorID])) / float64(dayCount) * distributionWeight
		preference := fallbackWeight
		if p.Slot.Start == catalog.first {
			preference = preferredWeight
		}
		total += distribution + preference
		counted++
	}
	if counted == 0 {
		return 0
	}
	return int(math.Round(total / float64(counted)))
}
