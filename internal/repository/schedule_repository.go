package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

// ScheduleRepository persists the solver's placements per term.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForTerm deletes every assignment of the term and inserts the new set. Callers
// pass a transaction so readers never observe the term without assignments.
func (r *ScheduleRepository) ReplaceForTerm(ctx context.Context, exec sqlx.ExtContext, semester string, year int, assignments []models.ScheduleAssignment) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM schedule_assignments WHERE UPPER(semester) = UPPER($1) AND year = $2`
	if _, err := target.ExecContext(ctx, deleteQuery, semester, year); err != nil {
		return fmt.Errorf("delete term assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range assignments {
		a := &assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.Semester = semester
		a.Year = year
	}

	const insertQuery = `INSERT INTO schedule_assignments (id, section_id, classroom_id, day, start_time, end_time, semester, year, created_at)
VALUES (:id, :section_id, :classroom_id, :day, :start_time, :end_time, :semester, :year, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, assignments); err != nil {
		return fmt.Errorf("insert term assignments: %w", err)
	}
	return nil
}

// ListByTerm returns the persisted timetable of a term with display labels.
func (r *ScheduleRepository) ListByTerm(ctx context.Context, semester string, year int) ([]models.ScheduleAssignmentDetail, error) {
	const query = `SELECT sa.id, sa.section_id, sa.classroom_id, sa.day, sa.start_time, sa.end_time, sa.semester, sa.year, sa.created_at,
       c.code AS course_code, c.name AS course_name, s.section_number,
       COALESCE(i.first_name, '') AS instructor_first_name, COALESCE(i.last_name, '') AS instructor_last_name,
       r.building, r.room_number, s.enrolled_count, s.capacity
FROM schedule_assignments sa
JOIN sections s ON s.id = sa.section_id
JOIN courses c ON c.id = s.course_id
JOIN classrooms r ON r.id = sa.classroom_id
LEFT JOIN instructors i ON i.id = s.instructor_id
WHERE UPPER(sa.semester) = UPPER($1) AND sa.year = $2`
	var rows []models.ScheduleAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, semester, year); err != nil {
		return nil, fmt.Errorf("list term assignments: %w", err)
	}
	return rows, nil
}
