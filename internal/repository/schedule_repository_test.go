package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

func TestScheduleRepositoryReplaceForTerm(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_assignments WHERE UPPER(semester) = UPPER($1) AND year = $2")).
		WithArgs("Fall", 2025).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	assignments := []models.ScheduleAssignment{
		{SectionID: "sec-1", ClassroomID: "room-1", Day: "Monday", StartTime: "09:00", EndTime: "11:00"},
		{SectionID: "sec-2", ClassroomID: "room-1", Day: "Monday", StartTime: "11:00", EndTime: "13:00"},
	}
	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceForTerm(context.Background(), tx, "Fall", 2025, assignments))
	require.NoError(t, tx.Commit())

	for _, a := range assignments {
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "Fall", a.Semester)
		assert.Equal(t, 2025, a.Year)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForTermDeleteFails(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_assignments")).
		WillReturnError(errors.New("connection reset"))

	err := repo.ReplaceForTerm(context.Background(), nil, "Fall", 2025, []models.ScheduleAssignment{{SectionID: "sec-1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete term assignments")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListByTerm(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "section_id", "classroom_id", "day", "start_time", "end_time", "semester", "year", "created_at",
		"course_code", "course_name", "section_number", "instructor_first_name", "instructor_last_name",
		"building", "room_number", "enrolled_count", "capacity",
	}).AddRow("sa-1", "sec-1", "room-1", "Monday", "09:00", "11:00", "Fall", 2025, time.Now(),
		"CS101", "Intro to CS", "01", "Ada", "Lovelace", "Science Hall", "101", 20, 40)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE UPPER(sa.semester) = UPPER($1) AND sa.year = $2")).
		WithArgs("Fall", 2025).
		WillReturnRows(rows)

	details, err := repo.ListByTerm(context.Background(), "Fall", 2025)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Science Hall", details[0].Building)
	assert.Equal(t, "CS101", details[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}
