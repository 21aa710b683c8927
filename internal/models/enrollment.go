package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusFailed    EnrollmentStatus = "failed"
)

// PassingGrades are the letter grades that satisfy a prerequisite.
var PassingGrades = []string{"A", "B", "C", "D"}

// Enrollment captures a student's registration to a section.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SectionID      string           `db:"section_id" json:"section_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	LetterGrade    *string          `db:"letter_grade" json:"letter_grade,omitempty"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
}

// EnrolledSectionSchedule is a student's active enrollment joined with the section's
// meeting pattern, used for conflict checks.
type EnrolledSectionSchedule struct {
	EnrollmentID   string         `db:"enrollment_id"`
	SectionID      string         `db:"section_id"`
	CourseCode     string         `db:"course_code"`
	Schedule       types.JSONText `db:"schedule"`
	Semester       string         `db:"semester"`
	Year           int            `db:"year"`
	EnrollmentDate time.Time      `db:"enrollment_date"`
}
