// Package oracle fetches the current ask price of a pair from both venues.
package oracle

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"spread-arbitrage/symbol"
	"spread-arbitrage/trading"
)

// Prices holds one quote per venue, A and B in the order the oracle was
// constructed with.
type Prices struct {
	A trading.VenueQuote
	B trading.VenueQuote
}

type Oracle struct {
	a      trading.Client
	b      trading.Client
	logger *zap.Logger
}

func New(a, b trading.Client, logger *zap.Logger) *Oracle {
	return &Oracle{
		a:      a,
		b:      b,
		logger: logger.With(zap.String("component", "oracle")),
	}
}

// Fetch queries both venues concurrently and waits for both answers. Either
// failure fails the whole fetch with a *trading.FetchError.
func (o *Oracle) Fetch(ctx context.Context, pair trading.Pair) (Prices, error) {
	var prices Prices

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := o.fetch(gctx, o.a, pair)
		prices.A = q
		return err
	})
	g.Go(func() error {
		q, err := o.fetch(gctx, o.b, pair)
		prices.B = q
		return err
	})
	if err := g.Wait(); err != nil {
		return Prices{}, err
	}

	o.logger.Info("fetched prices",
		zap.String("pair", pair.String()),
		zap.Stringer(prices.A.Venue.String(), prices.A.Ask),
		zap.Stringer(prices.B.Venue.String(), prices.B.Ask))
	return prices, nil
}

func (o *Oracle) fetch(ctx context.Context, c trading.Client, pair trading.Pair) (trading.VenueQuote, error) {
	venue := c.Venue()
	sym, err := symbol.ForVenue(pair, venue)
	if err != nil {
		return trading.VenueQuote{}, err
	}

	ask, err := c.GetAskPrice(ctx, sym)
	if err != nil {
		o.logger.Warn("ask price query failed", zap.String("venue", venue.String()), zap.Error(err))
		return trading.VenueQuote{}, &trading.FetchError{Venue: venue, Kind: classify(err), Err: err}
	}
	if !ask.IsPositive() {
		err := errors.Errorf("non-positive ask %s for %s", ask, sym)
		return trading.VenueQuote{}, &trading.FetchError{Venue: venue, Kind: trading.ErrQuoteUnavailable, Err: err}
	}
	return trading.VenueQuote{Venue: venue, Ask: ask}, nil
}

// classify separates answers the venue gave but which carried no usable ask
// from calls that never produced an answer.
func classify(err error) error {
	var verr *trading.VenueError
	if errors.Is(err, trading.ErrQuoteUnavailable) || errors.As(err, &verr) {
		return trading.ErrQuoteUnavailable
	}
	return trading.ErrVenueUnreachable
}
