package services

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidBase = errors.New("montant_ht must be positive")
	ErrInvalidRate = errors.New("tva_rate must not be negative")
)

// ComputeAmounts derives the tax and total from a pre-tax amount and a rate
// in percent. Amounts are computed with decimals and rounded half-up to two
// places; the float64 results are what gets persisted.
func ComputeAmounts(montantHT, tauxTVA float64) (tva, ttc float64, err error) {
	if montantHT <= 0 {
		return 0, 0, ErrInvalidBase
	}
	if tauxTVA < 0 {
		return 0, 0, ErrInvalidRate
	}
	base := decimal.NewFromFloat(montantHT)
	t := base.Mul(decimal.NewFromFloat(tauxTVA)).Div(decimal.NewFromInt(100)).Round(2)
	tva, _ = t.Float64()
	ttc, _ = base.Add(t).Float64()
	return tva, ttc, nil
}
