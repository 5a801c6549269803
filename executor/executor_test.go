package executor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"spread-arbitrage/oracle"
	"spread-arbitrage/trading"
	"spread-arbitrage/trading/tradingtest"
)

type notification struct {
	subject, body string
}

type recordingNotifier struct {
	sent []notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, subject, body string) error {
	r.sent = append(r.sent, notification{subject, body})
	return r.err
}

type harness struct {
	kraken   *tradingtest.Fake
	bitstamp *tradingtest.Fake
	journal  *tradingtest.Journal
	notifier *recordingNotifier
}

func newHarness(krakenAsk, bitstampAsk string) *harness {
	j := new(tradingtest.Journal)
	return &harness{
		kraken:   &tradingtest.Fake{Name: trading.Kraken, Journal: j, Ask: decimal.RequireFromString(krakenAsk)},
		bitstamp: &tradingtest.Fake{Name: trading.Bitstamp, Journal: j, Ask: decimal.RequireFromString(bitstampAsk)},
		journal:  j,
		notifier: &recordingNotifier{},
	}
}

func (h *harness) executor(t *testing.T, budget, threshold string) *Executor {
	t.Helper()
	return h.executorWith(t, budget, threshold, h.kraken, h.bitstamp)
}

func (h *harness) executorWith(t *testing.T, budget, threshold string, a, b trading.Client) *Executor {
	t.Helper()
	params := Params{
		Pair:      trading.Pair{Base: "BTC", Quote: "EUR"},
		Budget:    decimal.RequireFromString(budget),
		Threshold: decimal.RequireFromString(threshold),
		Subject:   "BTCINVEST",
	}
	e, err := New(params, oracle.New(a, b, zap.NewNop()), []trading.Client{a, b}, h.notifier, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	e.newClientOrderID = func() string {
		n++
		return "client-" + string(rune('0'+n))
	}
	return e
}

func (h *harness) checkOneNotification(t *testing.T, state State) notification {
	t.Helper()
	if len(h.notifier.sent) != 1 {
		t.Fatalf("got %d notifications, want 1", len(h.notifier.sent))
	}
	n := h.notifier.sent[0]
	if !strings.Contains(n.subject, string(state)) {
		t.Errorf("notification subject %q does not name state %s", n.subject, state)
	}
	return n
}

func TestRunSkipped(t *testing.T) {
	h := newHarness("100", "100.3")

	res := h.executor(t, "1000", "0.5").Run(context.Background())

	if res.State != StateSkipped || res.Status != StatusSkipped {
		t.Fatalf("result = %+v, want Skipped", res)
	}
	o, ok := res.Outcome.(NotTriggered)
	if !ok {
		t.Fatalf("outcome = %T, want NotTriggered", res.Outcome)
	}
	if !o.Spread.Percent.Equal(decimal.RequireFromString("0.30")) {
		t.Errorf("spread = %s, want 0.30", o.Spread.Percent)
	}
	if n := h.kraken.Orders() + h.bitstamp.Orders(); n != 0 {
		t.Errorf("placed %d orders, want none", n)
	}
	h.checkOneNotification(t, StateSkipped)
}

func TestRunCompleted(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellResponse = trading.TradeResponse{OrderID: "B1"}

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StateCompleted || res.Status != StatusCompleted {
		t.Fatalf("result = %+v, want Completed", res)
	}
	o := res.Outcome.(Completed)
	if o.Buy.Venue != trading.Kraken || o.Sell.Venue != trading.Bitstamp {
		t.Errorf("buy/sell venues = %s/%s", o.Buy.Venue, o.Sell.Venue)
	}
	if o.Buy.OrderID != "K1" || o.Sell.OrderID != "B1" {
		t.Errorf("order ids = %s/%s", o.Buy.OrderID, o.Sell.OrderID)
	}
	if !o.Proceeds.Equal(decimal.NewFromInt(1050)) || !o.Cost.Equal(decimal.NewFromInt(1000)) || !o.Profit.Equal(decimal.NewFromInt(50)) {
		t.Errorf("cost/proceeds/profit = %s/%s/%s", o.Cost, o.Proceeds, o.Profit)
	}

	if len(h.kraken.Buys) != 1 || len(h.bitstamp.Sells) != 1 {
		t.Fatalf("buys=%d sells=%d", len(h.kraken.Buys), len(h.bitstamp.Sells))
	}
	buy, sell := h.kraken.Buys[0], h.bitstamp.Sells[0]
	if buy.Symbol != "XXBTZEUR" || sell.Symbol != "btceur" {
		t.Errorf("symbols = %s/%s", buy.Symbol, sell.Symbol)
	}
	if !buy.Volume.Equal(decimal.NewFromInt(10)) || !sell.Volume.Equal(buy.Volume) {
		t.Errorf("volumes = %s/%s, want 10/10", buy.Volume, sell.Volume)
	}
	if buy.ClientOrderID == "" || buy.ClientOrderID == sell.ClientOrderID {
		t.Errorf("client order ids = %q/%q", buy.ClientOrderID, sell.ClientOrderID)
	}
	if len(h.kraken.Sells) != 0 || len(h.bitstamp.Buys) != 0 {
		t.Error("unexpected orders on the wrong side")
	}

	n := h.checkOneNotification(t, StateCompleted)
	for _, want := range []string{"K1", "B1", "1050.00", "50.00"} {
		if !strings.Contains(n.body, want) {
			t.Errorf("notification body %q does not contain %q", n.body, want)
		}
	}
}

func TestRunCompletedReverseDirection(t *testing.T) {
	h := newHarness("105", "100")
	h.bitstamp.BuyResponse = trading.TradeResponse{OrderID: "B7"}
	h.kraken.SellResponse = trading.TradeResponse{OrderID: "K7"}

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StateCompleted {
		t.Fatalf("result = %+v, want Completed", res)
	}
	if len(h.bitstamp.Buys) != 1 || len(h.kraken.Sells) != 1 {
		t.Fatalf("want buy on bitstamp and sell on kraken")
	}
	if h.kraken.Sells[0].Symbol != "XXBTZEUR" {
		t.Errorf("kraken sell symbol = %s, want XXBTZEUR", h.kraken.Sells[0].Symbol)
	}
}

func TestRunPartialFailure(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellErr = &trading.VenueError{Venue: trading.Bitstamp, Op: "sell", Messages: []string{"insufficient balance"}}

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StatePartialFailure || res.Status != StatusPartialFailure {
		t.Fatalf("result = %+v, want PartialFailure", res)
	}
	o := res.Outcome.(PartialFailure)
	if o.Buy.OrderID != "K1" {
		t.Errorf("buy order id = %q, want K1", o.Buy.OrderID)
	}
	var verr *trading.VenueError
	if !errors.As(o.Sell.Err, &verr) {
		t.Errorf("sell error = %v, want VenueError", o.Sell.Err)
	}
	if len(h.bitstamp.Sells) != 1 || len(h.kraken.Buys) != 1 {
		t.Errorf("buys=%d sells=%d, want exactly one of each (no retry)", len(h.kraken.Buys), len(h.bitstamp.Sells))
	}
	if len(h.kraken.Sells) != 0 || len(h.bitstamp.Buys) != 0 {
		t.Error("engine attempted an unwind")
	}

	n := h.checkOneNotification(t, StatePartialFailure)
	if !strings.HasPrefix(n.subject, string(SeverityCritical)) {
		t.Errorf("subject %q is not critical", n.subject)
	}
	if !strings.Contains(n.body, "K1") || !strings.Contains(n.body, "insufficient balance") {
		t.Errorf("body %q lacks buy id or sell error", n.body)
	}
}

func TestRunSellWithoutOrderID(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellResponse = trading.TradeResponse{Raw: `{"status":"ok"}`}

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StatePartialFailure {
		t.Fatalf("result = %+v, want PartialFailure", res)
	}
}

func TestRunAbortedOnPriceFailure(t *testing.T) {
	h := newHarness("100", "105")
	h.bitstamp.AskErr = errors.New("connection refused")

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StateAbortedBeforeExecution || res.Status != StatusAborted {
		t.Fatalf("result = %+v, want AbortedBeforeExecution", res)
	}
	o := res.Outcome.(AbortedBeforeExecution)
	if !errors.Is(o.Err, trading.ErrVenueUnreachable) {
		t.Errorf("error = %v, want ErrVenueUnreachable", o.Err)
	}
	if n := h.kraken.Orders() + h.bitstamp.Orders(); n != 0 {
		t.Errorf("placed %d orders, want none", n)
	}
	h.checkOneNotification(t, StateAbortedBeforeExecution)
}

func TestRunAbortedOnBuyFailure(t *testing.T) {
	tests := []struct {
		name string
		resp trading.TradeResponse
		err  error
	}{
		{name: "venue error", err: &trading.VenueError{Venue: trading.Kraken, Op: "buy", Messages: []string{"EOrder:Insufficient funds"}}},
		{name: "missing order id", resp: trading.TradeResponse{Raw: `{"result":{}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("100", "105")
			h.kraken.BuyResponse = tt.resp
			h.kraken.BuyErr = tt.err

			res := h.executor(t, "1000", "1").Run(context.Background())

			if res.State != StateAbortedBeforeExecution {
				t.Fatalf("result = %+v, want AbortedBeforeExecution", res)
			}
			o := res.Outcome.(AbortedBeforeExecution)
			if o.Buy == nil || o.Buy.Venue != trading.Kraken {
				t.Errorf("aborted outcome does not carry the failed buy leg: %+v", o)
			}
			if len(h.bitstamp.Sells) != 0 {
				t.Error("sell leg attempted after failed buy")
			}
			h.checkOneNotification(t, StateAbortedBeforeExecution)
		})
	}
}

func TestRunBuyBeforeSell(t *testing.T) {
	for _, asks := range [][2]string{{"100", "105"}, {"105", "100"}} {
		h := newHarness(asks[0], asks[1])
		ok := trading.TradeResponse{OrderID: "id"}
		h.kraken.BuyResponse, h.kraken.SellResponse = ok, ok
		h.bitstamp.BuyResponse, h.bitstamp.SellResponse = ok, ok

		h.executor(t, "1000", "1").Run(context.Background())

		entries := h.journal.Entries()
		if len(entries) != 4 {
			t.Fatalf("journal = %v", entries)
		}
		if !strings.HasSuffix(entries[0], "buy start") || !strings.HasSuffix(entries[1], "buy end") ||
			!strings.HasSuffix(entries[2], "sell start") || !strings.HasSuffix(entries[3], "sell end") {
			t.Errorf("journal = %v, want buy to finish before sell starts", entries)
		}
	}
}

// cancellingClient cancels the invocation context as soon as its buy leg is
// confirmed.
type cancellingClient struct {
	*tradingtest.Fake
	cancel context.CancelFunc
}

func (c *cancellingClient) Buy(ctx context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	defer c.cancel()
	return c.Fake.Buy(ctx, req)
}

type ctxCheckingClient struct {
	*tradingtest.Fake
	sellCtxErr error
}

func (c *ctxCheckingClient) Sell(ctx context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	c.sellCtxErr = ctx.Err()
	return c.Fake.Sell(ctx, req)
}

func TestRunSellSurvivesCancellation(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellResponse = trading.TradeResponse{OrderID: "B1"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := &cancellingClient{Fake: h.kraken, cancel: cancel}
	b := &ctxCheckingClient{Fake: h.bitstamp}

	res := h.executorWith(t, "1000", "1", a, b).Run(ctx)

	if res.State != StateCompleted {
		t.Fatalf("result = %+v, want Completed", res)
	}
	if b.sellCtxErr != nil {
		t.Errorf("sell leg saw cancelled context: %v", b.sellCtxErr)
	}
	h.checkOneNotification(t, StateCompleted)
}

func TestRunNotificationFailureKeepsOutcome(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellResponse = trading.TradeResponse{OrderID: "B1"}
	h.notifier.err = errors.New("sns unavailable")

	res := h.executor(t, "1000", "1").Run(context.Background())

	if res.State != StateCompleted {
		t.Fatalf("result = %+v, want Completed", res)
	}
}

type stalledNotifier struct {
	deadline bool
}

func (s *stalledNotifier) Notify(ctx context.Context, _, _ string) error {
	_, s.deadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStalledNotificationReturnsResult(t *testing.T) {
	h := newHarness("100", "105")
	h.kraken.BuyResponse = trading.TradeResponse{OrderID: "K1"}
	h.bitstamp.SellErr = errors.New("connection reset")

	e := h.executor(t, "1000", "1")
	stalled := &stalledNotifier{}
	e.notifier = stalled
	e.notifyTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case res := <-done:
		if res.State != StatePartialFailure {
			t.Fatalf("result = %+v, want PartialFailure", res)
		}
		if !stalled.deadline {
			t.Error("notification context has no deadline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run blocked on a stalled notifier")
	}
}

func TestRunBudgetTooSmall(t *testing.T) {
	h := newHarness("30000", "31000")

	res := h.executor(t, "0.00001", "1").Run(context.Background())

	if res.State != StateAbortedBeforeExecution {
		t.Fatalf("result = %+v, want AbortedBeforeExecution", res)
	}
	if !errors.Is(res.Outcome.(AbortedBeforeExecution).Err, trading.ErrInvalidBudget) {
		t.Errorf("error = %v, want ErrInvalidBudget", res.Outcome.(AbortedBeforeExecution).Err)
	}
	if n := h.kraken.Orders() + h.bitstamp.Orders(); n != 0 {
		t.Errorf("placed %d orders, want none", n)
	}
}

func TestNewValidates(t *testing.T) {
	h := newHarness("1", "1")
	clients := []trading.Client{h.kraken, h.bitstamp}
	pair := trading.Pair{Base: "BTC", Quote: "EUR"}

	tests := []struct {
		name    string
		params  Params
		clients []trading.Client
		is      error
	}{
		{"zero budget", Params{Pair: pair, Budget: decimal.Zero}, clients, trading.ErrInvalidBudget},
		{"bad pair", Params{Pair: trading.Pair{Base: "BTC"}, Budget: decimal.NewFromInt(1)}, clients, trading.ErrInvalidPairFormat},
		{"negative threshold", Params{Pair: pair, Budget: decimal.NewFromInt(1), Threshold: decimal.NewFromInt(-1)}, clients, nil},
		{"missing venue", Params{Pair: pair, Budget: decimal.NewFromInt(1)}, clients[:1], nil},
	}

	for _, tt := range tests {
		_, err := New(tt.params, oracle.New(h.kraken, h.bitstamp, zap.NewNop()), tt.clients, h.notifier, zap.NewNop())
		if err == nil {
			t.Errorf("%s: want error", tt.name)
			continue
		}
		if tt.is != nil && !errors.Is(err, tt.is) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.is)
		}
	}
}

func TestResultJSON(t *testing.T) {
	res := newResult(NotTriggered{
		Pair:      trading.Pair{Base: "BTC", Quote: "EUR"},
		Threshold: decimal.RequireFromString("0.5"),
	})
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["state"] != "Skipped" || got["statusCode"] != float64(200) || got["status"] != "success-skipped" {
		t.Errorf("json = %s", data)
	}
}
