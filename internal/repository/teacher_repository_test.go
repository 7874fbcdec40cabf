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

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

var teacherRowColumns = []string{"id", "name", "instrument", "phone", "email", "status", "rates", "created_at", "updated_at"}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows(teacherRowColumns).
		AddRow("t1", "Ana", "Piano", nil, nil, "ACTIVE", []byte(`{"SUELTA_INDIVIDUAL_30 min":15000}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, instrument, phone, email, status, rates, created_at, updated_at FROM teachers WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	amount, ok := list[0].Rates.Lookup("SUELTA_INDIVIDUAL_30 min")
	assert.True(t, ok)
	assert.Equal(t, int64(15000), amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "Ana", "Piano", nil, nil, "ACTIVE", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{Name: "Ana", Instrument: "Piano", Status: models.TeacherStatusActive}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotEmpty(t, teacher.ID)
	assert.NotNil(t, teacher.Rates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateRates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM teachers WHERE id = \$1 FOR UPDATE`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t1", "Ana", "Piano", nil, nil, "ACTIVE", []byte(`{"PRACTICA_30 min":9000}`), time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET rates = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	teacher, err := repo.UpdateRates(context.Background(), "t1", func(rates pricing.RateTable) (pricing.RateTable, error) {
		rates["ENSAMBLE_UNICA"] = 20000
		return rates, nil
	})
	require.NoError(t, err)
	assert.Len(t, teacher.Rates, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpdateRatesRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM teachers WHERE id = \$1 FOR UPDATE`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t1", "Ana", "Piano", nil, nil, "ACTIVE", []byte(`{}`), time.Now(), time.Now()))
	mock.ExpectRollback()

	boom := errors.New("invalid")
	_, err := repo.UpdateRates(context.Background(), "t1", func(pricing.RateTable) (pricing.RateTable, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
