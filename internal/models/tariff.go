package models

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// TariffSnapshot is the persisted tariff table.
type TariffSnapshot struct {
	Table     pricing.TariffTable `db:"prices" json:"prices"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}
