package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "status", "debt", "consecutive_absences", "created_at", "updated_at"}).
		AddRow("s1", "Lucía", "Pérez", "ACTIVE", 130660, 0, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT s\.id, s\.first_name, .+ FROM students s WHERE 1=1 AND s\.status = \$1 AND \(LOWER\(s\.first_name .+ LIKE \$2.*\) ORDER BY s\.last_name ASC LIMIT 10 OFFSET 10`).
		WithArgs(models.StudentStatusActive, "%lu%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s WHERE 1=1 AND s.status = $1")).
		WithArgs(models.StudentStatusActive, "%lu%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	status := models.StudentStatusActive
	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Search: "Lu", Status: &status, Page: 2, PageSize: 10, SortBy: "last_name", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Lucía Pérez", students[0].FullName())
	assert.Equal(t, int64(130660), students[0].Debt)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(anyArgs(20)...).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FirstName: "Lucía", LastName: "Pérez", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateSkipsBalances(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`UPDATE students SET first_name = \?, .+ updated_at = \? WHERE id = \?`).
		WithArgs(anyArgs(17)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &models.Student{ID: "s1", FirstName: "Lucía", Debt: 999}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE status = \$1\) AS active`).
		WithArgs(models.StudentStatusActive, models.StudentStatusInactive).
		WillReturnRows(sqlmock.NewRows([]string{"active", "inactive", "total_debt"}).AddRow(12, 3, 250000))

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, counts.Active)
	assert.Equal(t, 3, counts.Inactive)
	assert.Equal(t, int64(250000), counts.TotalDebt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCriticalAbsences(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`FROM students WHERE status = \$1 AND consecutive_absences >= \$2`).
		WithArgs(models.StudentStatusActive, models.CriticalAbsenceThreshold).
		WillReturnRows(sqlmock.NewRows([]string{"id", "first_name", "last_name", "consecutive_absences", "phone"}).
			AddRow("s1", "Lucía", "Pérez", 3, "555"))

	rows, err := repo.CriticalAbsences(context.Background(), models.CriticalAbsenceThreshold)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].ConsecutiveAbsences)
	assert.NoError(t, mock.ExpectationsWereMet())
}
