package models

// Course is a catalog entry that sections are offered for.
type Course struct {
	ID           string `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	Credits      int    `db:"credits" json:"credits"`
	DepartmentID string `db:"department_id" json:"department_id"`
	IsActive     bool   `db:"is_active" json:"is_active"`
}

// CoursePrerequisite is one edge of the prerequisite graph.
type CoursePrerequisite struct {
	CourseID             string `db:"course_id" json:"course_id"`
	PrerequisiteCourseID string `db:"prerequisite_course_id" json:"prerequisite_course_id"`
	PrerequisiteCode     string `db:"prerequisite_code" json:"prerequisite_code"`
}
