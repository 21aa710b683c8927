package models

import "time"

// ScheduleAssignment is one persisted solver placement for a term.
type ScheduleAssignment struct {
	ID          string    `db:"id" json:"id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Day         string    `db:"day" json:"day"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Semester    string    `db:"semester" json:"semester"`
	Year        int       `db:"year" json:"year"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ScheduleAssignmentDetail joins an assignment with the labels shown in timetables.
type ScheduleAssignmentDetail struct {
	ScheduleAssignment
	CourseCode          string `db:"course_code"`
	CourseName          string `db:"course_name"`
	SectionNumber       string `db:"section_number"`
	InstructorFirstName string `db:"instructor_first_name"`
	InstructorLastName  string `db:"instructor_last_name"`
	Building            string `db:"building"`
	RoomNumber          string `db:"room_number"`
	EnrolledCount       int    `db:"enrolled_count"`
	Capacity            int    `db:"capacity"`
}
