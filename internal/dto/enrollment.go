package dto

import (
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/scheduling"
)

// EnrollRequest registers a student in a section. StudentID defaults to the caller.
type EnrollRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// DropRequest withdraws a student from an enrollment.
type DropRequest struct {
	EnrollmentID string `validate:"required"`
	StudentID    string `validate:"required"`
}

// AutoEnrollRequest enrolls a student in every eligible section of a department.
// Semester and year default to the configured current term.
type AutoEnrollRequest struct {
	DepartmentID string `json:"department_id" validate:"required"`
	StudentID    string `json:"student_id" validate:"required"`
	Semester     string `json:"semester"`
	Year         int    `json:"year" validate:"omitempty,min=2000,max=2100"`
}

// Reasons a section is skipped during auto-enrollment.
const (
	SkipReasonAlreadyEnrolled = "already_enrolled"
	SkipReasonFull            = "full"
	SkipReasonConflict        = "schedule_conflict"
	SkipReasonUnscheduled     = "unscheduled"
)

// SkippedSection records why auto-enrollment passed over a section.
type SkippedSection struct {
	SectionID  string `json:"sectionId"`
	CourseCode string `json:"courseCode"`
	Reason     string `json:"reason"`
}

// AutoEnrollResult lists the enrollments created and the sections skipped.
type AutoEnrollResult struct {
	Enrolled []models.Enrollment `json:"enrolled"`
	Skipped  []SkippedSection    `json:"skipped"`
}

// ConflictCheckRequest asks whether a section clashes with a student's timetable.
type ConflictCheckRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// ConflictingSection is one enrolled section that clashes with a candidate.
type ConflictingSection struct {
	SectionID  string            `json:"sectionId"`
	CourseCode string            `json:"courseCode"`
	Schedule   scheduling.Window `json:"schedule"`
}

// StudentConflictResult reports every clash, ordered by enrollment date.
type StudentConflictResult struct {
	HasConflict         bool                 `json:"hasConflict"`
	ConflictingSections []ConflictingSection `json:"conflictingSections"`
}

// CourseCodes lists the conflicting course codes in order.
func (r StudentConflictResult) CourseCodes() []string {
	codes := make([]string, 0, len(r.ConflictingSections))
	for _, c := range r.ConflictingSections {
		codes = append(codes, c.CourseCode)
	}
	return codes
}
