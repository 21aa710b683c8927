package scheduling

// Window is a recurring weekly meeting pattern: a set of days sharing one time range.
type Window struct {
	Days  []Day  `json:"days"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// Overlaps reports whether two windows clash. Windows without a common day never
// clash regardless of their times. Ranges are half-open, so a class ending at 11:00
// and another starting at 11:00 on the same day do not clash.
func Overlaps(a, b Window) (bool, error) {
	if !shareDay(a.Days, b.Days) {
		return false, nil
	}
	aStart, err := ToMinutes(a.Start)
	if err != nil {
		return false, err
	}
	aEnd, err := ToMinutes(a.End)
	if err != nil {
		return false, err
	}
	bStart, err := ToMinutes(b.Start)
	if err != nil {
		return false, err
	}
	bEnd, err := ToMinutes(b.End)
	if err != nil {
		return false, err
	}
	return aStart < bEnd && bStart < aEnd, nil
}

func shareDay(a, b []Day) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[Day]struct{}, len(a))
	for _, d := range a {
		set[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[d]; ok {
			return true
		}
	}
	return false
}

func (s span) clashes(o span) bool {
	return s.day == o.day && s.start < o.end && o.start < s.end
}
