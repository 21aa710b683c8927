// Package scheduling holds the pure timetabling algorithms: the weekly time slot
// catalog, the schedule overlap test and the backtracking constraint solver.
package scheduling

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Day is a weekday, Monday = 1 through Sunday = 7.
type Day int

// Weekdays.
const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// String returns the English day name.
func (d Day) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayNames[d]
}

// Valid reports whether d is one of the seven weekdays.
func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseDay accepts full or three letter day names in any case.
func ParseDay(raw string) (Day, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for i := Monday; i <= Sunday; i++ {
		full := strings.ToLower(dayNames[i])
		if name == full || name == full[:3] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", raw)
}

// MarshalJSON encodes the day by name.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a day name.
func (d *Day) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ToMinutes converts an "H:MM" or "HH:MM" clock value into minutes since midnight.
func ToMinutes(value string) (int, error) {
	match := clockPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, value)
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	return hours*60 + minutes, nil
}

// TimeSlot is one bookable block of the weekly grid.
type TimeSlot struct {
	Day   Day    `json:"day"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// Window returns the slot as a single-day schedule window.
func (s TimeSlot) Window() Window {
	return Window{Days: []Day{s.Day}, Start: s.Start, End: s.End}
}

// Catalog is an immutable, ordered set of time slots. The zero value is empty;
// use DefaultCatalog or NewCatalog.
type Catalog struct {
	slots []TimeSlot
	spans []span
	days  []Day
	first string
}

type span struct {
	day   Day
	start int
	end   int
}

// NewCatalog validates and freezes the provided slots, preserving their order.
func NewCatalog(slots []TimeSlot) (Catalog, error) {
	c := Catalog{
		slots: make([]TimeSlot, len(slots)),
		spans: make([]span, len(slots)),
	}
	copy(c.slots, slots)
	seenDay := make(map[Day]bool)
	earliest := -1
	for i, slot := range c.slots {
		if !slot.Day.Valid() {
			return Catalog{}, fmt.Errorf("slot %d: invalid day %d", i, int(slot.Day))
		}
		start, err := ToMinutes(slot.Start)
		if err != nil {
			return Catalog{}, fmt.Errorf("slot %d start: %w", i, err)
		}
		end, err := ToMinutes(slot.End)
		if err != nil {
			return Catalog{}, fmt.Errorf("slot %d end: %w", i, err)
		}
		if end <= start {
			return Catalog{}, fmt.Errorf("slot %d: end %s not after start %s", i, slot.End, slot.Start)
		}
		c.spans[i] = span{day: slot.Day, start: start, end: end}
		if !seenDay[slot.Day] {
			seenDay[slot.Day] = true
			c.days = append(c.days, slot.Day)
		}
		if earliest < 0 || start < earliest {
			earliest = start
			c.first = slot.Start
		}
	}
	return c, nil
}

var defaultCatalog = mustCatalog(weekdayBlocks())

// DefaultCatalog returns the fixed Monday–Friday grid of four two-hour blocks
// between 09:00 and 17:00 (20 slots).
func DefaultCatalog() Catalog {
	return defaultCatalog
}

func weekdayBlocks() []TimeSlot {
	blocks := [][2]string{{"09:00", "11:00"}, {"11:00", "13:00"}, {"13:00", "15:00"}, {"15:00", "17:00"}}
	slots := make([]TimeSlot, 0, 5*len(blocks))
	for day := Monday; day <= Friday; day++ {
		for _, block := range blocks {
			slots = append(slots, TimeSlot{Day: day, Start: block[0], End: block[1]})
		}
	}
	return slots
}

func mustCatalog(slots []TimeSlot) Catalog {
	c, err := NewCatalog(slots)
	if err != nil {
		panic(err)
	}
	return c
}

// Slots returns a fresh copy of the slots in catalog order.
func (c Catalog) Slots() []TimeSlot {
	out := make([]TimeSlot, len(c.slots))
	copy(out, c.slots)
	return out
}

// Len returns the number of slots.
func (c Catalog) Len() int { return len(c.slots) }

// Days returns the distinct days covered by the catalog, in first-seen order.
func (c Catalog) Days() []Day {
	out := make([]Day, len(c.days))
	copy(out, c.days)
	return out
}

// PreferredStart is the earliest start time in the catalog ("09:00" for the default grid).
func (c Catalog) PreferredStart() string { return c.first }
