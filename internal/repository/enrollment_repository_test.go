package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

const (
	reserveSeatSQL = "UPDATE sections SET enrolled_count = enrolled_count + 1 WHERE id = $1 AND enrolled_count < capacity"
	releaseSeatSQL = "UPDATE sections SET enrolled_count = enrolled_count - 1 WHERE id = $1 AND enrolled_count > 0"
)

func TestEnrollmentRepositoryCreateWithSeat(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(reserveSeatSQL)).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"}
	require.NoError(t, repo.CreateWithSeat(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, enrollment.Status)
	assert.False(t, enrollment.EnrollmentDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithSeatFull(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(reserveSeatSQL)).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateWithSeat(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"})
	require.ErrorIs(t, err, ErrSeatUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateWithSeatDuplicate(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(reserveSeatSQL)).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.CreateWithSeat(context.Background(), &models.Enrollment{StudentID: "stu-1", SectionID: "sec-1"})
	require.ErrorIs(t, err, ErrDuplicateEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDropWithSeat(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)
	enrolledAt := time.Now().Add(-48 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET status = $1 WHERE id = $2 AND status = $3 RETURNING")).
		WithArgs(models.EnrollmentStatusDropped, "enr-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "status", "letter_grade", "enrollment_date"}).
			AddRow("enr-1", "stu-1", "sec-1", models.EnrollmentStatusDropped, nil, enrolledAt))
	mock.ExpectExec(regexp.QuoteMeta(releaseSeatSQL)).
		WithArgs("sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	dropped, err := repo.DropWithSeat(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, dropped.Status)
	assert.Equal(t, "sec-1", dropped.SectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDropWithSeatStateChanged(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET status = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "status", "letter_grade", "enrollment_date"}))
	mock.ExpectRollback()

	_, err := repo.DropWithSeat(context.Background(), "enr-1")
	require.ErrorIs(t, err, ErrEnrollmentStateChanged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)
	query := regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status <> $3 LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs("stu-1", "sec-1", models.EnrollmentStatusDropped).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err := repo.ExistsActive(context.Background(), "stu-1", "sec-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(query).
		WithArgs("stu-1", "sec-2", models.EnrollmentStatusDropped).
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsActive(context.Background(), "stu-1", "sec-2")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveSchedules(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"enrollment_id", "section_id", "course_code", "schedule", "semester", "year", "enrollment_date"}).
		AddRow("enr-1", "sec-1", "CS101", []byte(`{"days":["Monday"],"startTime":"09:00","endTime":"11:00"}`), "Fall", 2025, now.Add(-time.Hour)).
		AddRow("enr-2", "sec-2", "MA201", nil, "Fall", 2025, now)
	mock.ExpectQuery("(?s)" + regexp.QuoteMeta("UPPER(s.semester) = UPPER($3)") + ".*" + regexp.QuoteMeta("ORDER BY e.enrollment_date ASC")).
		WithArgs("stu-1", models.EnrollmentStatusEnrolled, "FALL", 2025).
		WillReturnRows(rows)

	schedules, err := repo.ListActiveSchedules(context.Background(), "stu-1", "FALL", 2025)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "CS101", schedules[0].CourseCode)
	parsed, err := models.ParseSchedule(schedules[1].Schedule)
	require.NoError(t, err)
	assert.Nil(t, parsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListPassedCourseIDs(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("e.letter_grade = ANY($3)")).
		WithArgs("stu-1", models.EnrollmentStatusCompleted, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow("course-1").AddRow("course-2"))

	ids, err := repo.ListPassedCourseIDs(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"course-1", "course-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
