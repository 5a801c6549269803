package paper

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spread-arbitrage/trading"
)

const FilledStatus = "filled"

type order struct {
	side   trading.Side
	symbol string
	volume decimal.Decimal
}

// Client reads prices from the wrapped venue and fills every order locally.
// Nothing is ever sent to the venue's private endpoints.
type Client struct {
	trading.Client

	logger *zap.Logger

	mu     sync.Mutex
	orders map[string]order
}

func NewClient(c trading.Client, logger *zap.Logger) *Client {
	return &Client{
		Client: c,
		logger: logger.With(zap.String("venue", c.Venue().String()), zap.Bool("paper", true)),
		orders: map[string]order{},
	}
}

func (c *Client) Buy(ctx context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	return c.fill(ctx, trading.SideBuy, req.TradeRequest)
}

func (c *Client) Sell(ctx context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	return c.fill(ctx, trading.SideSell, req.TradeRequest)
}

func (c *Client) fill(ctx context.Context, side trading.Side, req trading.TradeRequest) (trading.TradeResponse, error) {
	if err := ctx.Err(); err != nil {
		return trading.TradeResponse{}, err
	}
	if !req.Volume.IsPositive() {
		return trading.TradeResponse{}, errors.Errorf("paper %s: volume %s must be positive", side, req.Volume)
	}

	id := "paper-" + uuid.NewString()

	c.mu.Lock()
	c.orders[id] = order{side: side, symbol: req.Symbol, volume: req.Volume}
	c.mu.Unlock()

	c.logger.Info("paper order filled",
		zap.String("side", string(side)),
		zap.String("symbol", req.Symbol),
		zap.String("volume", req.Volume.String()),
		zap.String("order_id", id),
	)
	return trading.TradeResponse{OrderID: id}, nil
}

func (c *Client) GetOrderDetail(_ context.Context, req trading.GetOrderDetailRequest) (trading.GetOrderDetailResponse, error) {
	c.mu.Lock()
	o, ok := c.orders[req.OrderID]
	c.mu.Unlock()
	if !ok {
		return trading.GetOrderDetailResponse{}, &trading.VenueError{
			Venue:    c.Venue(),
			Op:       "order status",
			Messages: []string{"unknown paper order " + req.OrderID},
		}
	}
	return trading.GetOrderDetailResponse{
		OrderID:  req.OrderID,
		Status:   FilledStatus,
		Executed: o.volume,
	}, nil
}
