package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/campus-scheduler-api/internal/scheduling"
)

// Section is a scheduled offering of a course within one term.
type Section struct {
	ID            string         `db:"id" json:"id"`
	CourseID      string         `db:"course_id" json:"course_id"`
	SectionNumber string         `db:"section_number" json:"section_number"`
	InstructorID  string         `db:"instructor_id" json:"instructor_id"`
	ClassroomID   *string        `db:"classroom_id" json:"classroom_id,omitempty"`
	Capacity      int            `db:"capacity" json:"capacity"`
	EnrolledCount int            `db:"enrolled_count" json:"enrolled_count"`
	Schedule      types.JSONText `db:"schedule" json:"schedule,omitempty"`
	Semester      string         `db:"semester" json:"semester"`
	Year          int            `db:"year" json:"year"`
	IsActive      bool           `db:"is_active" json:"is_active"`
}

// SectionDetail enriches Section with course and instructor labels.
type SectionDetail struct {
	Section
	CourseCode          string `db:"course_code" json:"course_code"`
	CourseName          string `db:"course_name" json:"course_name"`
	Credits             int    `db:"credits" json:"credits"`
	DepartmentID        string `db:"department_id" json:"department_id"`
	InstructorFirstName string `db:"instructor_first_name" json:"instructor_first_name"`
	InstructorLastName  string `db:"instructor_last_name" json:"instructor_last_name"`
}

// InstructorName joins the instructor's first and last name.
func (d SectionDetail) InstructorName() string {
	return strings.TrimSpace(d.InstructorFirstName + " " + d.InstructorLastName)
}

// IsFull reports whether every seat is taken.
func (s Section) IsFull() bool {
	return s.EnrolledCount >= s.Capacity
}

// ParsedSchedule decodes the stored meeting pattern. It returns nil when the section
// has not been scheduled yet.
func (s Section) ParsedSchedule() (*scheduling.Window, error) {
	return ParseSchedule(s.Schedule)
}

// ParseSchedule decodes a stored {"days","startTime","endTime"} document.
func ParseSchedule(raw types.JSONText) (*scheduling.Window, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}
	var window scheduling.Window
	if err := json.Unmarshal(raw, &window); err != nil {
		return nil, fmt.Errorf("decode section schedule: %w", err)
	}
	if len(window.Days) == 0 {
		return nil, nil
	}
	return &window, nil
}

// EncodeSchedule serialises a meeting pattern for storage.
func EncodeSchedule(window scheduling.Window) (types.JSONText, error) {
	payload, err := json.Marshal(window)
	if err != nil {
		return nil, fmt.Errorf("encode section schedule: %w", err)
	}
	return types.JSONText(payload), nil
}
