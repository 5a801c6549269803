package paper

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spread-arbitrage/trading"
	"spread-arbitrage/trading/tradingtest"
)

func TestClient_PassesPricesThrough(t *testing.T) {
	venue := &tradingtest.Fake{Name: trading.Kraken, Ask: decimal.NewFromInt(27000)}
	c := NewClient(venue, zap.NewNop())

	ask, err := c.GetAskPrice(context.Background(), "XXBTZEUR")
	if err != nil {
		t.Fatal(err)
	}
	if !ask.Equal(decimal.NewFromInt(27000)) {
		t.Fatalf("ask = %s", ask)
	}
	if c.Venue() != trading.Kraken {
		t.Fatalf("venue = %s", c.Venue())
	}
}

func TestClient_FillsLocally(t *testing.T) {
	venue := &tradingtest.Fake{Name: trading.Bitstamp, Ask: decimal.NewFromInt(27000)}
	c := NewClient(venue, zap.NewNop())
	volume := decimal.RequireFromString("0.003703")

	buy, err := c.Buy(context.Background(), trading.BuyRequest{TradeRequest: trading.TradeRequest{Symbol: "btceur", Volume: volume}})
	if err != nil {
		t.Fatal(err)
	}
	sell, err := c.Sell(context.Background(), trading.SellRequest{TradeRequest: trading.TradeRequest{Symbol: "btceur", Volume: volume}})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(buy.OrderID, "paper-") || !strings.HasPrefix(sell.OrderID, "paper-") || buy.OrderID == sell.OrderID {
		t.Fatalf("order ids = %q, %q", buy.OrderID, sell.OrderID)
	}
	if venue.Orders() != 0 {
		t.Fatal("orders must not reach the venue")
	}

	detail, err := c.GetOrderDetail(context.Background(), trading.GetOrderDetailRequest{OrderID: buy.OrderID})
	if err != nil {
		t.Fatal(err)
	}
	if detail.Status != FilledStatus || !detail.Executed.Equal(volume) {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestClient_RejectsBadOrders(t *testing.T) {
	c := NewClient(&tradingtest.Fake{Name: trading.Kraken}, zap.NewNop())

	if _, err := c.Buy(context.Background(), trading.BuyRequest{}); err == nil {
		t.Fatal("want error for zero volume")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Sell(ctx, trading.SellRequest{TradeRequest: trading.TradeRequest{Volume: decimal.NewFromInt(1)}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	_, err = c.GetOrderDetail(context.Background(), trading.GetOrderDetailRequest{OrderID: "nope"})
	var verr *trading.VenueError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want VenueError", err)
	}
}
