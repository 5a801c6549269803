// Package tradingtest provides an in-memory trading.Client for tests.
package tradingtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"spread-arbitrage/trading"
)

// Journal records venue calls across several fake clients in the order they
// started and finished.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *Journal) add(s string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// Fake is a scripted trading.Client. Zero-valued response fields produce an
// empty OrderID, which callers must treat as an unconfirmed order.
type Fake struct {
	Name    trading.Venue
	Journal *Journal

	Ask    decimal.Decimal
	AskErr error

	BuyResponse  trading.TradeResponse
	BuyErr       error
	SellResponse trading.TradeResponse
	SellErr      error

	Detail    trading.GetOrderDetailResponse
	DetailErr error

	mu      sync.Mutex
	Symbols []string
	Buys    []trading.BuyRequest
	Sells   []trading.SellRequest
}

var _ trading.Client = (*Fake)(nil)

func (f *Fake) Venue() trading.Venue {
	return f.Name
}

func (f *Fake) GetAskPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.Symbols = append(f.Symbols, symbol)
	f.mu.Unlock()

	if f.AskErr != nil {
		return decimal.Zero, f.AskErr
	}
	return f.Ask, nil
}

func (f *Fake) Buy(_ context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	f.Journal.add(fmt.Sprintf("%s buy start", f.Name))
	defer f.Journal.add(fmt.Sprintf("%s buy end", f.Name))

	f.mu.Lock()
	f.Buys = append(f.Buys, req)
	f.mu.Unlock()
	return f.BuyResponse, f.BuyErr
}

func (f *Fake) Sell(_ context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	f.Journal.add(fmt.Sprintf("%s sell start", f.Name))
	defer f.Journal.add(fmt.Sprintf("%s sell end", f.Name))

	f.mu.Lock()
	f.Sells = append(f.Sells, req)
	f.mu.Unlock()
	return f.SellResponse, f.SellErr
}

func (f *Fake) GetOrderDetail(_ context.Context, req trading.GetOrderDetailRequest) (trading.GetOrderDetailResponse, error) {
	if f.DetailErr != nil {
		return trading.GetOrderDetailResponse{}, f.DetailErr
	}
	return f.Detail, nil
}

// Orders returns the number of buy and sell calls made.
func (f *Fake) Orders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Buys) + len(f.Sells)
}
