// Package executor runs one arbitrage decision cycle: fetch both asks,
// evaluate the spread and, when it clears the threshold, buy on the cheaper
// venue and then sell the same volume on the more expensive one.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spread-arbitrage/notify"
	"spread-arbitrage/oracle"
	"spread-arbitrage/sizing"
	"spread-arbitrage/spread"
	"spread-arbitrage/symbol"
	"spread-arbitrage/trading"
)

// NotifyTimeout bounds the notification sent at the end of each cycle.
const NotifyTimeout = 30 * time.Second

type Params struct {
	Pair      trading.Pair
	Budget    decimal.Decimal
	Threshold decimal.Decimal

	// Subject prefixes every notification subject.
	Subject string
}

func (p Params) Validate() error {
	if err := p.Pair.Validate(); err != nil {
		return err
	}
	if !p.Budget.IsPositive() {
		return errors.Wrapf(trading.ErrInvalidBudget, "budget %s", p.Budget)
	}
	if p.Threshold.IsNegative() {
		return errors.Errorf("spread threshold %s is negative", p.Threshold)
	}
	return nil
}

type PriceFetcher interface {
	Fetch(ctx context.Context, pair trading.Pair) (oracle.Prices, error)
}

type Executor struct {
	params   Params
	prices   PriceFetcher
	venues   map[trading.Venue]trading.Client
	notifier notify.Notifier
	logger   *zap.Logger

	newClientOrderID func() string
	notifyTimeout    time.Duration
}

func New(params Params, prices PriceFetcher, clients []trading.Client, notifier notify.Notifier, logger *zap.Logger) (*Executor, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	venues := make(map[trading.Venue]trading.Client, len(clients))
	for _, c := range clients {
		venues[c.Venue()] = c
	}
	for _, v := range trading.Venues {
		if venues[v] == nil {
			return nil, errors.Errorf("no client configured for venue %s", v)
		}
	}

	return &Executor{
		params:           params,
		prices:           prices,
		venues:           venues,
		notifier:         notifier,
		logger:           logger.With(zap.String("component", "executor"), zap.String("pair", params.Pair.String())),
		newClientOrderID: uuid.NewString,
		notifyTimeout:    NotifyTimeout,
	}, nil
}

// Run executes one cycle. It always returns a Result and sends exactly one
// notification, whatever the outcome.
func (e *Executor) Run(ctx context.Context) Result {
	outcome := e.run(ctx)
	e.report(ctx, outcome)
	return newResult(outcome)
}

func (e *Executor) run(ctx context.Context) Outcome {
	pair := e.params.Pair

	prices, err := e.prices.Fetch(ctx, pair)
	if err != nil {
		return AbortedBeforeExecution{Pair: pair, Stage: StateIdle, Err: errors.Wrap(err, "fetch prices")}
	}

	sp, err := spread.Evaluate(prices.A, prices.B)
	if err != nil {
		return AbortedBeforeExecution{Pair: pair, Stage: StatePricesFetched, Err: err}
	}
	e.logger.Info("spread evaluated",
		zap.Stringer("spread", sp.Percent),
		zap.Stringer("threshold", e.params.Threshold),
		zap.String("cheaper", sp.Cheaper.Venue.String()),
		zap.String("expensive", sp.Expensive.Venue.String()))

	if !sp.Triggered(e.params.Threshold) {
		return NotTriggered{Pair: pair, Spread: sp, Threshold: e.params.Threshold}
	}

	buy, sell, err := e.legs(sp)
	if err != nil {
		return AbortedBeforeExecution{Pair: pair, Stage: StateSpreadEvaluated, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return AbortedBeforeExecution{Pair: pair, Stage: StateExecuting, Err: errors.Wrap(err, "cancelled before buy leg")}
	}

	e.logger.Info("placing buy leg", zap.Stringer("leg", buy))
	buyID, err := e.execute(ctx, buy)
	if err != nil {
		failed := FailedLeg{Leg: buy, Err: err}
		return AbortedBeforeExecution{Pair: pair, Stage: StateExecuting, Err: err, Buy: &failed}
	}
	bought := ExecutedLeg{Leg: buy, OrderID: buyID}
	e.logger.Info("buy leg confirmed", zap.String("order_id", buyID), zap.String("venue", buy.Venue.String()))

	// The buy is confirmed, so the sell is attempted even if the caller has
	// given up in the meantime.
	e.logger.Info("placing sell leg", zap.Stringer("leg", sell))
	sellID, err := e.execute(context.WithoutCancel(ctx), sell)
	if err != nil {
		return PartialFailure{Pair: pair, Spread: sp, Buy: bought, Sell: FailedLeg{Leg: sell, Err: err}}
	}
	sold := ExecutedLeg{Leg: sell, OrderID: sellID}

	cost := sizing.Proceeds(buy.Volume, buy.Price)
	proceeds := sizing.Proceeds(sell.Volume, sell.Price)
	return Completed{
		Pair:     pair,
		Spread:   sp,
		Buy:      bought,
		Sell:     sold,
		Cost:     cost,
		Proceeds: proceeds,
		Profit:   proceeds.Sub(cost),
	}
}

// legs builds the buy leg on the cheaper venue and a sell leg on the other
// venue for the identical base-asset volume.
func (e *Executor) legs(sp spread.Result) (buy, sell Leg, err error) {
	volume, err := sizing.Volume(e.params.Budget, sp.Cheaper.Ask)
	if err != nil {
		return Leg{}, Leg{}, err
	}

	buySymbol, err := symbol.ForVenue(e.params.Pair, sp.Cheaper.Venue)
	if err != nil {
		return Leg{}, Leg{}, err
	}
	sellSymbol, err := symbol.ForVenue(e.params.Pair, sp.Expensive.Venue)
	if err != nil {
		return Leg{}, Leg{}, err
	}

	buy = Leg{
		Venue:         sp.Cheaper.Venue,
		Side:          trading.SideBuy,
		Symbol:        buySymbol,
		Volume:        volume,
		Price:         sp.Cheaper.Ask,
		ClientOrderID: e.newClientOrderID(),
	}
	sell = Leg{
		Venue:         sp.Expensive.Venue,
		Side:          trading.SideSell,
		Symbol:        sellSymbol,
		Volume:        volume,
		Price:         sp.Expensive.Ask,
		ClientOrderID: e.newClientOrderID(),
	}
	return buy, sell, nil
}

// execute places one leg and waits for the venue's answer. A response without
// an order id counts as a failure.
func (e *Executor) execute(ctx context.Context, leg Leg) (string, error) {
	client := e.venues[leg.Venue]
	req := trading.TradeRequest{
		Symbol:        leg.Symbol,
		Volume:        leg.Volume,
		ClientOrderID: leg.ClientOrderID,
	}

	var resp trading.TradeResponse
	var err error
	switch leg.Side {
	case trading.SideBuy:
		resp, err = client.Buy(ctx, trading.BuyRequest{TradeRequest: req})
	case trading.SideSell:
		resp, err = client.Sell(ctx, trading.SellRequest{TradeRequest: req})
	default:
		return "", errors.Errorf("unknown order side %q", leg.Side)
	}
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", leg.Venue, leg.Side)
	}
	if resp.OrderID == "" {
		return "", errors.Errorf("%s %s: unable to read order id from response %s", leg.Venue, leg.Side, resp.Raw)
	}
	return resp.OrderID, nil
}

func (e *Executor) report(ctx context.Context, o Outcome) {
	fields := []zap.Field{
		zap.String("state", string(o.State())),
		zap.Int("status", int(o.Status())),
	}

	switch v := o.(type) {
	case PartialFailure:
		e.logger.Error("sell leg failed after buy leg executed, position is unhedged",
			append(fields,
				zap.String("buy_venue", v.Buy.Venue.String()),
				zap.String("buy_order_id", v.Buy.OrderID),
				zap.String("buy_client_order_id", v.Buy.ClientOrderID),
				zap.Stringer("buy_volume", v.Buy.Volume),
				zap.Stringer("buy_price", v.Buy.Price),
				zap.String("sell_venue", v.Sell.Venue.String()),
				zap.Error(v.Sell.Err))...)
	case AbortedBeforeExecution:
		e.logger.Warn("cycle aborted", append(fields, zap.Error(v.Err))...)
	case Completed:
		e.logger.Info("cycle completed",
			append(fields,
				zap.String("buy_order_id", v.Buy.OrderID),
				zap.String("sell_order_id", v.Sell.OrderID),
				zap.Stringer("profit", v.Profit))...)
	default:
		e.logger.Info("cycle finished", append(fields, zap.String("message", o.Message()))...)
	}

	if e.notifier == nil {
		return
	}
	subject := fmt.Sprintf("%s %s %s: %s", o.Severity(), e.params.Subject, e.params.Pair, o.State())
	// Notification must go out even when the caller's context is done, but a
	// stalled channel must not hold back the result.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.notifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, subject, o.Message()); err != nil {
		e.logger.Warn("could not deliver notification", zap.String("subject", subject), zap.Error(err))
	}
}
