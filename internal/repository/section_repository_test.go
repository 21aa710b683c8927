package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sectionDetailColumns = []string{
	"id", "course_id", "section_number", "instructor_id", "classroom_id", "capacity",
	"enrolled_count", "schedule", "semester", "year", "is_active",
	"course_code", "course_name", "credits", "department_id",
	"instructor_first_name", "instructor_last_name",
}

func TestSectionRepositoryListActiveByTerm(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows(sectionDetailColumns).
		AddRow("sec-1", "course-1", "01", "inst-1", nil, 40, 12, nil, "Fall", 2025, true, "CS101", "Intro to CS", 3, "dept-cs", "Ada", "Lovelace").
		AddRow("sec-2", "course-2", "01", "inst-2", "room-1", 30, 30, []byte(`{"days":["Tuesday"],"startTime":"11:00","endTime":"13:00"}`), "Fall", 2025, true, "CS102", "Data Structures", 4, "dept-cs", "Alan", "Turing")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE UPPER(s.semester) = UPPER($1) AND s.year = $2 AND s.is_active = TRUE AND c.is_active = TRUE")).
		WithArgs("FALL", 2025).
		WillReturnRows(rows)

	sections, err := repo.ListActiveByTerm(context.Background(), "FALL", 2025)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Nil(t, sections[0].ClassroomID)
	assert.Equal(t, "Fall", sections[0].Semester, "stored casing is matched case-insensitively")
	assert.Equal(t, "Ada Lovelace", sections[0].InstructorName())
	require.NotNil(t, sections[1].ClassroomID)
	assert.Equal(t, "room-1", *sections[1].ClassroomID)
	assert.True(t, sections[1].IsFull())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListActiveByDepartment(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.department_id = $1 AND UPPER(s.semester) = UPPER($2) AND s.year = $3")).
		WithArgs("dept-cs", "Fall", 2025).
		WillReturnRows(sqlmock.NewRows(sectionDetailColumns))

	sections, err := repo.ListActiveByDepartment(context.Background(), "dept-cs", "Fall", 2025)
	require.NoError(t, err)
	assert.Empty(t, sections)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindDetailByIDNotFound(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindDetailByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryAssignPlacement(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewSectionRepository(db)
	schedule := types.JSONText(`{"days":["Monday"],"startTime":"09:00","endTime":"11:00"}`)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sections SET classroom_id = $1, schedule = $2 WHERE id = $3")).
		WithArgs("room-1", schedule, "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.AssignPlacement(context.Background(), tx, "sec-1", "room-1", schedule))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
