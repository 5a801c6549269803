package trading

import (
	"context"

	"github.com/shopspring/decimal"
)

// Venue identifies one of the two exchanges the engine trades on.
type Venue string

const (
	Kraken   Venue = "kraken"
	Bitstamp Venue = "bitstamp"
)

// Venues lists the supported venues in A, B order. Ties in the spread
// evaluation resolve to the first entry.
var Venues = []Venue{Kraken, Bitstamp}

func (v Venue) String() string {
	return string(v)
}

func (v Venue) Valid() bool {
	return v == Kraken || v == Bitstamp
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Client interface {
	Venue() Venue
	GetAskPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Buy(ctx context.Context, req BuyRequest) (TradeResponse, error)
	Sell(ctx context.Context, req SellRequest) (TradeResponse, error)
	GetOrderDetail(ctx context.Context, req GetOrderDetailRequest) (GetOrderDetailResponse, error)
}

type SellRequest struct {
	TradeRequest
}

type BuyRequest struct {
	TradeRequest
}

// TradeRequest describes a market order. Symbol is the venue-native symbol.
type TradeRequest struct {
	Symbol        string
	Volume        decimal.Decimal
	ClientOrderID string
}

// TradeResponse carries the venue-assigned identifier of an accepted order.
// An empty OrderID means the venue did not confirm the order.
type TradeResponse struct {
	OrderID string
	Raw     string
}

type GetOrderDetailRequest struct {
	Symbol  string
	OrderID string
}

type GetOrderDetailResponse struct {
	OrderID  string
	Status   string
	Executed decimal.Decimal
}

// VenueQuote is the best ask observed on a venue.
type VenueQuote struct {
	Venue Venue
	Ask   decimal.Decimal
}
