package dto

import "time"

// GenerateScheduleRequest triggers a solver run for one term.
type GenerateScheduleRequest struct {
	Semester string `json:"semester" validate:"required,max=32"`
	Year     int    `json:"year" validate:"required,min=2000,max=2100"`
}

// ScheduleQuery selects a persisted term timetable.
type ScheduleQuery struct {
	Semester string `form:"semester" validate:"required,max=32"`
	Year     int    `form:"year" validate:"required,min=2000,max=2100"`
	Format   string `form:"format"`
}

// ScheduleEntry is one row of a generated or persisted timetable.
type ScheduleEntry struct {
	SectionID      string `json:"sectionId"`
	CourseCode     string `json:"courseCode"`
	CourseName     string `json:"courseName"`
	SectionNumber  string `json:"sectionNumber"`
	InstructorName string `json:"instructorName"`
	ClassroomID    string `json:"classroomId"`
	Building       string `json:"building"`
	RoomNumber     string `json:"roomNumber,omitempty"`
	Day            string `json:"day"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	EnrolledCount  int    `json:"enrolledCount"`
	Capacity       int    `json:"capacity"`
	Semester       string `json:"semester"`
	Year           int    `json:"year"`
}

// ScheduleMetadata summarises a solver run.
type ScheduleMetadata struct {
	TotalSections            int       `json:"totalSections"`
	ScheduledSections        int       `json:"scheduledSections"`
	UnscheduledSections      int       `json:"unscheduledSections"`
	HardConstraintsSatisfied bool      `json:"hardConstraintsSatisfied"`
	SoftConstraintsScore     int       `json:"softConstraintsScore"`
	SearchSteps              int       `json:"searchSteps"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// GenerateScheduleResponse is returned after a successful, persisted run.
type GenerateScheduleResponse struct {
	Schedule []ScheduleEntry  `json:"schedule"`
	Metadata ScheduleMetadata `json:"metadata"`
}

// TermSchedule is the persisted timetable for a term.
type TermSchedule struct {
	Semester string          `json:"semester"`
	Year     int             `json:"year"`
	Entries  []ScheduleEntry `json:"entries"`
}
