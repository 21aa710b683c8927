package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Solver errors. Callers map them onto transport errors.
var (
	ErrNoSections           = errors.New("scheduling: no sections to place")
	ErrNoClassrooms         = errors.New("scheduling: no classrooms available")
	ErrUnsatisfiable        = errors.New("scheduling: constraints cannot be satisfied")
	ErrSearchBudgetExceeded = errors.New("scheduling: search budget exceeded")
	ErrInvalidTimeFormat    = errors.New("scheduling: invalid time format")
)

// UnplaceableError lists sections that no classroom can hold.
type UnplaceableError struct {
	SectionIDs []string
}

func (e *UnplaceableError) Error() string {
	return fmt.Sprintf("%s: no classroom fits sections %s", ErrUnsatisfiable, strings.Join(e.SectionIDs, ", "))
}

// Is lets errors.Is(err, ErrUnsatisfiable) match.
func (e *UnplaceableError) Is(target error) bool { return target == ErrUnsatisfiable }

// OversubscribedError reports demand the slot grid cannot hold under any search:
// instructors with more sections than there are slots, or more sections needing a
// room of some size than those rooms offer slots.
type OversubscribedError struct {
	InstructorIDs []string
	// Sections competed for Available room-slot pairs. Both are zero when only
	// instructors are over-subscribed.
	Sections  int
	Available int
}

func (e *OversubscribedError) Error() string {
	var parts []string
	if len(e.InstructorIDs) > 0 {
		parts = append(parts, fmt.Sprintf("instructors %s teach more sections than there are slots", strings.Join(e.InstructorIDs, ", ")))
	}
	if e.Sections > 0 {
		parts = append(parts, fmt.Sprintf("%d sections need %d room slots", e.Sections, e.Available))
	}
	return fmt.Sprintf("%s: %s", ErrUnsatisfiable, strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrUnsatisfiable) match.
func (e *OversubscribedError) Is(target error) bool { return target == ErrUnsatisfiable }

// BudgetError describes where a bounded search stopped.
type BudgetError struct {
	Steps  int
	Placed int
	Cause  error
}

func (e *BudgetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s after %d steps (%d placed): %v", ErrSearchBudgetExceeded, e.Steps, e.Placed, e.Cause)
	}
	return fmt.Sprintf("%s after %d steps (%d placed)", ErrSearchBudgetExceeded, e.Steps, e.Placed)
}

// Is lets errors.Is(err, ErrSearchBudgetExceeded) match.
func (e *BudgetError) Is(target error) bool { return target == ErrSearchBudgetExceeded }

// Unwrap exposes the context error, if any.
func (e *BudgetError) Unwrap() error { return e.Cause }

// Section is a variable of the search: one course section needing a room and a slot.
type Section struct {
	ID            string
	InstructorID  string
	EnrolledCount int
}

// Classroom is a room the solver may place sections in.
type Classroom struct {
	ID       string
	Capacity int
}

// Placement is the value chosen for one section.
type Placement struct {
	SectionID   string   `json:"sectionId"`
	ClassroomID string   `json:"classroomId"`
	Slot        TimeSlot `json:"slot"`
}

// Assignment maps section id to its placement.
type Assignment map[string]Placement

// Result is the outcome of a successful search.
type Result struct {
	Assignment Assignment
	// Placements follows the input section order.
	Placements []Placement
	Steps      int
	Score      int
}

// Options tune a Solver. A zero Catalog falls back to DefaultCatalog; MaxSteps <= 0
// means no step budget.
type Options struct {
	Catalog  Catalog
	MaxSteps int
}

// Solver assigns sections to (classroom, slot) pairs by depth-first backtracking.
// Sections are visited in input order, classrooms largest first and slots in catalog
// order. There is no forward checking, so results are deterministic for a given input.
type Solver struct {
	catalog  Catalog
	maxSteps int
}

// NewSolver builds a solver.
func NewSolver(opts Options) *Solver {
	catalog := opts.Catalog
	if catalog.Len() == 0 {
		catalog = DefaultCatalog()
	}
	return &Solver{catalog: catalog, maxSteps: opts.MaxSteps}
}

// Catalog returns the slot catalog in use.
func (s *Solver) Catalog() Catalog { return s.catalog }

const ctxCheckInterval = 1024

// Solve searches for a complete assignment satisfying every hard constraint:
// the room holds the section's enrolled students, and no instructor or room is
// booked into two clashing slots. The search is all-or-nothing.
func (s *Solver) Solve(ctx context.Context, sections []Section, classrooms []Classroom) (*Result, error) {
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	if len(classrooms) == 0 {
		return nil, ErrNoClassrooms
	}
	if s.catalog.Len() == 0 {
		return nil, ErrUnsatisfiable
	}

	rooms := orderRooms(classrooms)
	if missing := unplaceable(sections, rooms); len(missing) > 0 {
		return nil, &UnplaceableError{SectionIDs: missing}
	}
	if err := oversubscribed(sections, rooms, s.catalog.Len()); err != nil {
		return nil, err
	}

	st := newSearchState(sections, rooms, s.catalog)
	steps := 0
	depth := 0
	for depth < len(sections) {
		placed := false
		for st.cursor[depth] < st.options {
			opt := st.cursor[depth]
			st.cursor[depth]++

			steps++
			if s.maxSteps > 0 && steps > s.maxSteps {
				return nil, &BudgetError{Steps: steps - 1, Placed: depth}
			}
			if steps%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, &BudgetError{Steps: steps, Placed: depth, Cause: err}
				}
			}

			if st.consistent(depth, opt) {
				st.commit(depth, opt)
				placed = true
				break
			}
		}

		if placed {
			depth++
			if depth < len(sections) {
				st.cursor[depth] = 0
			}
			continue
		}

		// Options exhausted for this section: undo the previous choice and resume
		// the previous section from its next option.
		st.cursor[depth] = 0
		depth--
		if depth < 0 {
			return nil, ErrUnsatisfiable
		}
		st.undo(depth)
	}

	result := &Result{
		Assignment: make(Assignment, len(sections)),
		Placements: make([]Placement, len(sections)),
		Steps:      steps,
	}
	for i, sec := range sections {
		p := st.placement(i)
		result.Assignment[sec.ID] = p
		result.Placements[i] = p
	}
	result.Score = Score(sections, result.Assignment, s.catalog)
	return result, nil
}

func orderRooms(classrooms []Classroom) []Classroom {
	rooms := make([]Classroom, len(classrooms))
	copy(rooms, classrooms)
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Capacity > rooms[j].Capacity
	})
	return rooms
}

// unplaceable reports sections larger than every room. Such inputs can never be
// solved, and detecting them up front avoids exhausting the whole tree.
func unplaceable(sections []Section, rooms []Classroom) []string {
	largest := rooms[0].Capacity
	var missing []string
	for _, sec := range sections {
		if sec.EnrolledCount > largest {
			missing = append(missing, sec.ID)
		}
	}
	return missing
}

// oversubscribed applies pigeonhole bounds. Each instructor needs a distinct slot per
// section. With rooms sorted by capacity, the sections larger than rooms[k] can only
// use the k bigger rooms, so they must not outnumber k*slots.
func oversubscribed(sections []Section, rooms []Classroom, slots int) *OversubscribedError {
	perInstructor := make(map[string]int)
	for _, sec := range sections {
		if sec.InstructorID != "" {
			perInstructor[sec.InstructorID]++
		}
	}
	var busy []string
	for id, n := range perInstructor {
		if n > slots {
			busy = append(busy, id)
		}
	}
	sort.Strings(busy)

	var result *OversubscribedError
	if len(busy) > 0 {
		result = &OversubscribedError{InstructorIDs: busy}
	}
	for k := 1; k <= len(rooms); k++ {
		need := 0
		for _, sec := range sections {
			if k == len(rooms) || sec.EnrolledCount > rooms[k].Capacity {
				need++
			}
		}
		if need > k*slots {
			if result == nil {
				result = &OversubscribedError{}
			}
			result.Sections = need
			result.Available = k * slots
			break
		}
	}
	return result
}

type searchState struct {
	sections []Section
	rooms    []Classroom
	catalog  Catalog
	options  int
	cursor   []int
	chosen   []int
}

func newSearchState(sections []Section, rooms []Classroom, catalog Catalog) *searchState {
	chosen := make([]int, len(sections))
	for i := range chosen {
		chosen[i] = -1
	}
	return &searchState{
		sections: sections,
		rooms:    rooms,
		catalog:  catalog,
		options:  len(rooms) * catalog.Len(),
		cursor:   make([]int, len(sections)),
		chosen:   chosen,
	}
}

func (st *searchState) split(opt int) (room int, slot int) {
	n := st.catalog.Len()
	return opt / n, opt % n
}

func (st *searchState) consistent(depth, opt int) bool {
	roomIdx, slotIdx := st.split(opt)
	room := st.rooms[roomIdx]
	sec := st.sections[depth]
	if room.Capacity < sec.EnrolledCount {
		return false
	}
	candidate := st.catalog.spans[slotIdx]
	for i := 0; i < depth; i++ {
		otherRoom, otherSlot := st.split(st.chosen[i])
		sameRoom := st.rooms[otherRoom].ID == room.ID
		sameInstructor := sec.InstructorID != "" && st.sections[i].InstructorID == sec.InstructorID
		if !sameRoom && !sameInstructor {
			continue
		}
		if candidate.clashes(st.catalog.spans[otherSlot]) {
			return false
		}
	}
	return true
}

func (st *searchState) commit(depth, opt int) { st.chosen[depth] = opt }

func (st *searchState) undo(depth int) { st.chosen[depth] = -1 }

func (st *searchState) placement(depth int) Placement {
	roomIdx, slotIdx := st.split(st.chosen[depth])
	return Placement{
		SectionID:   st.sections[depth].ID,
		ClassroomID: st.rooms[roomIdx].ID,
		Slot:        st.catalog.slots[slotIdx],
	}
}
