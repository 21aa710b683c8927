package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

// CourseRepository reads the course catalog and its prerequisite edges.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListPrerequisites returns the direct prerequisites of a course.
func (r *CourseRepository) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	const query = `SELECT cp.course_id, cp.prerequisite_course_id, c.code AS prerequisite_code
FROM course_prerequisites cp
JOIN courses c ON c.id = cp.prerequisite_course_id
WHERE cp.course_id = $1
ORDER BY c.code ASC`
	var edges []models.CoursePrerequisite
	if err := r.db.SelectContext(ctx, &edges, query, courseID); err != nil {
		return nil, fmt.Errorf("list course prerequisites: %w", err)
	}
	return edges, nil
}
