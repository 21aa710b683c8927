package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

const sectionDetailSelect = `SELECT s.id, s.course_id, s.section_number, s.instructor_id, s.classroom_id, s.capacity,
       s.enrolled_count, s.schedule, s.semester, s.year, s.is_active,
       c.code AS course_code, c.name AS course_name, c.credits, c.department_id,
       COALESCE(i.first_name, '') AS instructor_first_name, COALESCE(i.last_name, '') AS instructor_last_name
FROM sections s
JOIN courses c ON c.id = s.course_id
LEFT JOIN instructors i ON i.id = s.instructor_id`

// SectionRepository reads course sections and stamps solver placements onto them.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListActiveByTerm returns the active sections of active courses for a term in a stable order.
func (r *SectionRepository) ListActiveByTerm(ctx context.Context, semester string, year int) ([]models.SectionDetail, error) {
	query := sectionDetailSelect + `
WHERE UPPER(s.semester) = UPPER($1) AND s.year = $2 AND s.is_active = TRUE AND c.is_active = TRUE
ORDER BY c.code ASC, s.section_number ASC, s.id ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, semester, year); err != nil {
		return nil, fmt.Errorf("list term sections: %w", err)
	}
	return sections, nil
}

// ListActiveByDepartment returns a department's active sections for a term.
func (r *SectionRepository) ListActiveByDepartment(ctx context.Context, departmentID, semester string, year int) ([]models.SectionDetail, error) {
	query := sectionDetailSelect + `
WHERE c.department_id = $1 AND UPPER(s.semester) = UPPER($2) AND s.year = $3 AND s.is_active = TRUE AND c.is_active = TRUE
ORDER BY c.code ASC, s.section_number ASC, s.id ASC`
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, departmentID, semester, year); err != nil {
		return nil, fmt.Errorf("list department sections: %w", err)
	}
	return sections, nil
}

// FindDetailByID returns a section with its course and instructor labels.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := sectionDetailSelect + ` WHERE s.id = $1`
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// AssignPlacement records the room and meeting pattern chosen for a section.
func (r *SectionRepository) AssignPlacement(ctx context.Context, exec sqlx.ExtContext, sectionID, classroomID string, schedule types.JSONText) error {
	const query = `UPDATE sections SET classroom_id = $1, schedule = $2 WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, classroomID, schedule, sectionID); err != nil {
		return fmt.Errorf("assign section placement: %w", err)
	}
	return nil
}
