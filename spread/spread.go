// Package spread computes the percentage spread between two venue quotes.
package spread

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"spread-arbitrage/trading"
)

var hundred = decimal.NewFromInt(100)

// Result is the evaluated spread between two quotes. Percent is rounded to two
// decimal places.
type Result struct {
	Percent   decimal.Decimal
	Cheaper   trading.VenueQuote
	Expensive trading.VenueQuote
}

// Evaluate returns round2((1 - lower/higher) * 100) with half-away-from-zero
// rounding. When both asks are equal, a is reported as the cheaper venue.
func Evaluate(a, b trading.VenueQuote) (Result, error) {
	if !a.Ask.IsPositive() {
		return Result{}, errors.Wrapf(trading.ErrInvalidPrice, "%s ask %s", a.Venue, a.Ask)
	}
	if !b.Ask.IsPositive() {
		return Result{}, errors.Wrapf(trading.ErrInvalidPrice, "%s ask %s", b.Venue, b.Ask)
	}

	cheaper, expensive := a, b
	if b.Ask.LessThan(a.Ask) {
		cheaper, expensive = b, a
	}

	ratio := cheaper.Ask.Div(expensive.Ask)
	percent := decimal.NewFromInt(1).Sub(ratio).Mul(hundred).Round(2)

	return Result{
		Percent:   percent,
		Cheaper:   cheaper,
		Expensive: expensive,
	}, nil
}

// Triggered reports whether the spread reaches threshold percent.
func (r Result) Triggered(threshold decimal.Decimal) bool {
	return r.Percent.GreaterThanOrEqual(threshold)
}
