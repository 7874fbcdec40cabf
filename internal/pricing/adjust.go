package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyBulkAdjustment scales every cell of the table by percent (10 means +10%),
// rounding each cell independently to whole pesos and clamping at zero.
func ApplyBulkAdjustment(table TariffTable, percent decimal.Decimal) TariffTable {
	factor := decimal.NewFromInt(1).Add(percent.Div(hundred))
	return table.mapLeaves(func(price int64) int64 {
		adjusted := roundPesos(decimal.NewFromInt(price).Mul(factor))
		if adjusted < 0 {
			return 0
		}
		return adjusted
	})
}

// InversePercent returns the percentage that undoes an adjustment of percent,
// so that applying percent then InversePercent(percent) restores each cell
// within one peso.
func InversePercent(percent decimal.Decimal) (decimal.Decimal, error) {
	base := hundred.Add(percent)
	if !base.IsPositive() {
		return decimal.Zero, fmt.Errorf("pricing: adjustment of %s%% cannot be inverted", percent.String())
	}
	return percent.Neg().Mul(hundred).DivRound(base, 16), nil
}

// roundPesos rounds half away from zero to a whole peso.
func roundPesos(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
