package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

func tariffRow(t *testing.T, table pricing.TariffTable) *sqlmock.Rows {
	raw, err := json.Marshal(table)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"prices", "updated_at"}).AddRow(raw, time.Now())
}

func TestTariffRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTariffRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT prices, updated_at FROM tariffs WHERE id = $1")).
		WithArgs(tariffRowID).
		WillReturnRows(tariffRow(t, pricing.DefaultTariffTable()))

	snapshot, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.Table.Equal(pricing.DefaultTariffTable()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTariffRepositorySeedKeepsExistingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTariffRepository(db)

	mock.ExpectExec(`INSERT INTO tariffs .+ ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(tariffRowID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Seed(context.Background(), pricing.DefaultTariffTable()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTariffRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTariffRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tariffs WHERE id = \$1 FOR UPDATE`).
		WithArgs(tariffRowID).
		WillReturnRows(tariffRow(t, pricing.DefaultTariffTable()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tariffs SET prices = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), tariffRowID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	snapshot, err := repo.Update(context.Background(), func(table pricing.TariffTable) (pricing.TariffTable, error) {
		return table.WithCell("PRACTICA.30 min", 21000)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21000), snapshot.Table.Practice[pricing.Duration30])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTariffRepositoryUpdateRollsBackOnMutateError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTariffRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tariffs WHERE id = \$1 FOR UPDATE`).
		WithArgs(tariffRowID).
		WillReturnRows(tariffRow(t, pricing.DefaultTariffTable()))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), func(table pricing.TariffTable) (pricing.TariffTable, error) {
		return table.WithCell("NOPE", 1)
	})
	assert.True(t, errors.Is(err, pricing.ErrUnknownCell))
	assert.NoError(t, mock.ExpectationsWereMet())
}
