package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

var reportJobRowColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

func newReportRepoMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewReportRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	teacherID := "t1"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), "payroll", sqlmock.AnyArg(), "QUEUED", 0, nil, "admin", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypePayroll,
		Params:    models.ReportJobParams{TeacherID: &teacherID, Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.False(t, job.CreatedAt.IsZero())

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow(job.ID, "payroll", `{"format":"pdf","teacherId":"t1"}`, "QUEUED", 0, nil, "admin", time.Now(), nil, nil)
	mock.ExpectQuery(`SELECT .* FROM report_jobs WHERE id = \$1`).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, fetched.Params.Format)
	require.NotNil(t, fetched.Params.TeacherID)
	assert.Equal(t, "t1", *fetched.Params.TeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateFinished(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/export/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", ReportJobUpdate{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateClearsResult(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	ignored := "/api/v1/export/ignored"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET result_url = NULL WHERE id = $1")).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "job-1", ReportJobUpdate{ClearResult: true, ResultURL: &ignored})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, repo.Update(context.Background(), "job-1", ReportJobUpdate{}))
}

func TestReportRepositoryListPending(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "cashflow", `{"format":"csv"}`, "QUEUED", 0, nil, "admin", time.Now(), nil, nil).
		AddRow("job-2", "payroll", `{"format":"pdf"}`, "PROCESSING", 10, nil, "admin", time.Now(), nil, nil)
	mock.ExpectQuery(`FROM report_jobs\s+WHERE status IN \('QUEUED', 'PROCESSING'\) ORDER BY created_at ASC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, models.ReportStatusProcessing, jobs[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListExpired(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow("job-1", "payroll", `{"format":"csv"}`, "FINISHED", 100, "/api/v1/export/token", "admin", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil)
	mock.ExpectQuery(`WHERE status = 'FINISHED' AND result_url IS NOT NULL AND finished_at < \$1 ORDER BY finished_at ASC LIMIT \$2`).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(rows)

	jobs, err := repo.ListExpired(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].ResultURL)
	require.NoError(t, mock.ExpectationsWereMet())
}
