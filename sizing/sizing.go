// Package sizing converts a notional budget into an order volume.
package sizing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"spread-arbitrage/trading"
)

const (
	// VolumePlaces is the smallest base-asset increment accepted by the venues.
	VolumePlaces = 6

	// MoneyPlaces is the precision used when reporting quote-currency amounts.
	MoneyPlaces = 2
)

// Volume returns budget/price truncated to VolumePlaces decimals, so the
// order never spends more than budget at the quoted price.
func Volume(budget, price decimal.Decimal) (decimal.Decimal, error) {
	if !budget.IsPositive() {
		return decimal.Zero, errors.Wrapf(trading.ErrInvalidBudget, "budget %s", budget)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(trading.ErrInvalidBudget, "unit price %s", price)
	}

	volume := budget.Div(price).Truncate(VolumePlaces)
	if !volume.IsPositive() {
		return decimal.Zero, errors.Wrapf(trading.ErrInvalidBudget, "budget %s buys less than one unit increment at %s", budget, price)
	}
	return volume, nil
}

// Proceeds returns volume*price rounded to MoneyPlaces. It is used for
// reporting only.
func Proceeds(volume, price decimal.Decimal) decimal.Decimal {
	return volume.Mul(price).Round(MoneyPlaces)
}
