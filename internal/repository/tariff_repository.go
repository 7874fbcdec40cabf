package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// The tariff table is a single JSONB row.
const tariffRowID = 1

// TariffRepository persists the student-facing tariff table.
type TariffRepository struct {
	db *sqlx.DB
}

// NewTariffRepository constructs the repository.
func NewTariffRepository(db *sqlx.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// Get returns the stored table. sql.ErrNoRows means it was never seeded.
func (r *TariffRepository) Get(ctx context.Context) (*models.TariffSnapshot, error) {
	var snapshot models.TariffSnapshot
	if err := r.db.GetContext(ctx, &snapshot, `SELECT prices, updated_at FROM tariffs WHERE id = $1`, tariffRowID); err != nil {
		return nil, fmt.Errorf("get tariffs: %w", err)
	}
	return &snapshot, nil
}

// Seed stores table unless a row already exists.
func (r *TariffRepository) Seed(ctx context.Context, table pricing.TariffTable) error {
	const query = `INSERT INTO tariffs (id, prices, updated_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, tariffRowID, table, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed tariffs: %w", err)
	}
	return nil
}

// Update locks the row, applies mutate and stores the returned table.
func (r *TariffRepository) Update(ctx context.Context, mutate func(pricing.TariffTable) (pricing.TariffTable, error)) (snapshot *models.TariffSnapshot, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tariffs: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.TariffSnapshot
	if err = tx.GetContext(ctx, &current, `SELECT prices, updated_at FROM tariffs WHERE id = $1 FOR UPDATE`, tariffRowID); err != nil {
		return nil, fmt.Errorf("lock tariffs: %w", err)
	}
	next, err := mutate(current.Table)
	if err != nil {
		return nil, err
	}
	updated := models.TariffSnapshot{Table: next, UpdatedAt: time.Now().UTC()}
	if _, err = tx.ExecContext(ctx, `UPDATE tariffs SET prices = $1, updated_at = $2 WHERE id = $3`, updated.Table, updated.UpdatedAt, tariffRowID); err != nil {
		return nil, fmt.Errorf("update tariffs: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update tariffs: %w", err)
	}
	return &updated, nil
}
