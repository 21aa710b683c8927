package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

var (
	// ErrSeatUnavailable is returned when the conditional seat increment matched no row.
	ErrSeatUnavailable = errors.New("no seat available in section")
	// ErrDuplicateEnrollment is returned when the unique (student, section) index rejects an insert.
	ErrDuplicateEnrollment = errors.New("student already holds an enrollment for section")
	// ErrEnrollmentStateChanged is returned when an enrollment is no longer in the enrolled state.
	ErrEnrollmentStateChanged = errors.New("enrollment is not in the enrolled state")
)

const uniqueViolation = "23505"

const enrollmentColumns = `id, student_id, section_id, status, letter_grade, enrollment_date`

// EnrollmentRepository handles persistence of enrollments and the section seat ledger.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive checks whether the student holds a non-dropped enrollment in the section.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.EnrollmentStatusDropped); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CreateWithSeat takes a seat and inserts the enrollment in one transaction. The seat is
// taken with a conditional increment so concurrent callers cannot overfill a section;
// when no seat is left the transaction rolls back with ErrSeatUnavailable.
func (r *EnrollmentRepository) CreateWithSeat(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment == nil {
		return fmt.Errorf("enrollment payload is nil")
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const reserveSeat = `UPDATE sections SET enrolled_count = enrolled_count + 1 WHERE id = $1 AND enrolled_count < capacity`
	result, err := tx.ExecContext(ctx, reserveSeat, enrollment.SectionID)
	if err != nil {
		err = fmt.Errorf("reserve section seat: %w", err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		err = fmt.Errorf("reserve seat rows affected: %w", err)
		return err
	}
	if affected == 0 {
		err = ErrSeatUnavailable
		return err
	}

	const insertQuery = `INSERT INTO enrollments (id, student_id, section_id, status, letter_grade, enrollment_date)
VALUES (:id, :student_id, :section_id, :status, :letter_grade, :enrollment_date)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, enrollment); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
			return err
		}
		err = fmt.Errorf("insert enrollment: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit enrollment: %w", err)
		return err
	}
	return nil
}

// DropWithSeat marks an enrolled enrollment as dropped and releases its seat in one
// transaction. ErrEnrollmentStateChanged is returned when the row is no longer enrolled.
func (r *EnrollmentRepository) DropWithSeat(ctx context.Context, id string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drop transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const dropQuery = `UPDATE enrollments SET status = $1 WHERE id = $2 AND status = $3 RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	err = tx.QueryRowxContext(ctx, dropQuery, models.EnrollmentStatusDropped, id, models.EnrollmentStatusEnrolled).StructScan(&enrollment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrEnrollmentStateChanged
			return nil, err
		}
		err = fmt.Errorf("drop enrollment: %w", err)
		return nil, err
	}

	const releaseSeat = `UPDATE sections SET enrolled_count = enrolled_count - 1 WHERE id = $1 AND enrolled_count > 0`
	if _, err = tx.ExecContext(ctx, releaseSeat, enrollment.SectionID); err != nil {
		err = fmt.Errorf("release section seat: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit drop: %w", err)
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveSchedules returns the student's enrolled sections in a term, oldest enrollment first.
func (r *EnrollmentRepository) ListActiveSchedules(ctx context.Context, studentID, semester string, year int) ([]models.EnrolledSectionSchedule, error) {
	const query = `SELECT e.id AS enrollment_id, e.section_id, c.code AS course_code, s.schedule, s.semester, s.year, e.enrollment_date
FROM enrollments e
JOIN sections s ON s.id = e.section_id
JOIN courses c ON c.id = s.course_id
WHERE e.student_id = $1 AND e.status = $2 AND UPPER(s.semester) = UPPER($3) AND s.year = $4
ORDER BY e.enrollment_date ASC, e.id ASC`
	var schedules []models.EnrolledSectionSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, studentID, models.EnrollmentStatusEnrolled, semester, year); err != nil {
		return nil, fmt.Errorf("list enrolled schedules: %w", err)
	}
	return schedules, nil
}

// ListPassedCourseIDs returns the courses the student completed with a passing grade.
func (r *EnrollmentRepository) ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	const query = `SELECT DISTINCT s.course_id
FROM enrollments e
JOIN sections s ON s.id = e.section_id
WHERE e.student_id = $1 AND e.status = $2 AND e.letter_grade = ANY($3)`
	var courseIDs []string
	if err := r.db.SelectContext(ctx, &courseIDs, query, studentID, models.EnrollmentStatusCompleted, pq.Array(models.PassingGrades)); err != nil {
		return nil, fmt.Errorf("list passed courses: %w", err)
	}
	return courseIDs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
