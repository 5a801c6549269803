package bitstamp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"spread-arbitrage/trading"
)

const DefaultURL = "https://www.bitstamp.net"

const formContentType = "application/x-www-form-urlencoded"

type Config struct {
	URL       string
	APIKey    string
	APISecret string

	// RequestsPerSecond caps calls to the venue. Defaults to 10.
	RequestsPerSecond float64
}

type client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	now      func() time.Time
	newNonce func() string
}

type tickerResponse struct {
	Ask string `json:"ask"`
	Bid string `json:"bid"`
}

// errorResponse is the body bitstamp sends for rejected requests. Reason is
// either a string or an object of field errors.
type errorResponse struct {
	Status string          `json:"status"`
	Reason json.RawMessage `json:"reason"`
	Code   string          `json:"code"`
}

type orderResponse struct {
	ID            json.RawMessage `json:"id"`
	ClientOrderID string          `json:"client_order_id"`
	Amount        string          `json:"amount"`
}

type orderStatusResponse struct {
	ID              json.RawMessage `json:"id"`
	Status          string          `json:"status"`
	AmountRemaining string          `json:"amount_remaining"`
	Transactions    []struct {
		Amount string `json:"amount"`
	} `json:"transactions"`
}

func NewClient(config Config, httpClient *http.Client, logger *zap.Logger) trading.Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		config:   config,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:   logger.With(zap.String("venue", trading.Bitstamp.String())),
		now:      time.Now,
		newNonce: uuid.NewString,
	}
}

func (c *client) Venue() trading.Venue {
	return trading.Bitstamp
}

func (c *client) GetAskPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u, err := url.Parse(c.config.URL + fmt.Sprintf("/api/v2/ticker/%s/", symbol))
	if err != nil {
		return decimal.Zero, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, err
	}

	resBody, err := c.do(httpReq, "ticker")
	if err != nil {
		return decimal.Zero, err
	}

	var ticker tickerResponse
	if err := json.Unmarshal(resBody, &ticker); err != nil {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "decode ticker: %v", err)
	}
	if ticker.Ask == "" {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "no ask for %s", symbol)
	}
	ask, err := decimal.NewFromString(ticker.Ask)
	if err != nil {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "ask %q: %v", ticker.Ask, err)
	}
	return ask, nil
}

func (c *client) Buy(ctx context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	return c.marketOrder(ctx, "buy", req.TradeRequest)
}

func (c *client) Sell(ctx context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	return c.marketOrder(ctx, "sell", req.TradeRequest)
}

func (c *client) marketOrder(ctx context.Context, side string, req trading.TradeRequest) (trading.TradeResponse, error) {
	form := url.Values{}
	form.Set("amount", req.Volume.String())
	if req.ClientOrderID != "" {
		form.Set("client_order_id", req.ClientOrderID)
	}

	resBody, err := c.private(ctx, fmt.Sprintf("/api/v2/%s/market/%s/", side, req.Symbol), form, side)
	if err != nil {
		return trading.TradeResponse{}, err
	}

	var order orderResponse
	if err := json.Unmarshal(resBody, &order); err != nil {
		return trading.TradeResponse{}, errors.Wrapf(err, "decode %s response", side)
	}
	return trading.TradeResponse{
		OrderID: rawID(order.ID),
		Raw:     string(resBody),
	}, nil
}

func (c *client) GetOrderDetail(ctx context.Context, req trading.GetOrderDetailRequest) (trading.GetOrderDetailResponse, error) {
	form := url.Values{}
	form.Set("id", req.OrderID)

	resBody, err := c.private(ctx, "/api/v2/order_status/", form, "order status")
	if err != nil {
		return trading.GetOrderDetailResponse{}, err
	}

	var status orderStatusResponse
	if err := json.Unmarshal(resBody, &status); err != nil {
		return trading.GetOrderDetailResponse{}, errors.Wrap(err, "decode order status")
	}

	executed := decimal.Zero
	for _, tx := range status.Transactions {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil {
			return trading.GetOrderDetailResponse{}, errors.Wrapf(err, "transaction amount %q", tx.Amount)
		}
		executed = executed.Add(amount)
	}
	return trading.GetOrderDetailResponse{
		OrderID:  req.OrderID,
		Status:   status.Status,
		Executed: executed,
	}, nil
}

func (c *client) private(ctx context.Context, path string, form url.Values, op string) ([]byte, error) {
	u, err := url.Parse(c.config.URL + path)
	if err != nil {
		return nil, err
	}

	body := form.Encode()
	nonce := c.newNonce()
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	signature := c.sign(http.MethodPost, u.Host, u.Path, u.RawQuery, formContentType, nonce, timestamp, body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", formContentType)
	httpReq.Header.Set("X-Auth", "BITSTAMP "+c.config.APIKey)
	httpReq.Header.Set("X-Auth-Signature", signature)
	httpReq.Header.Set("X-Auth-Nonce", nonce)
	httpReq.Header.Set("X-Auth-Timestamp", timestamp)
	httpReq.Header.Set("X-Auth-Version", "v2")

	return c.do(httpReq, op)
}

func (c *client) do(httpReq *http.Request, op string) ([]byte, error) {
	if err := c.limiter.Wait(httpReq.Context()); err != nil {
		return nil, err
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusNotFound {
		return nil, &trading.VenueError{Venue: trading.Bitstamp, Op: op, Messages: []string{"not found"}}
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get http response code %d and body %s", res.StatusCode, resBody)
	}
	c.logger.Debug("get response", zap.String("op", op), zap.ByteString("body", resBody))

	var e errorResponse
	if err := json.Unmarshal(resBody, &e); err == nil && e.Status == "error" {
		return nil, &trading.VenueError{Venue: trading.Bitstamp, Op: op, Messages: reasons(e)}
	}
	return resBody, nil
}

// sign computes the v2 X-Auth-Signature. The content type only takes part in
// the message when there is a body.
func (c *client) sign(method, host, path, query, contentType, nonce, timestamp, body string) string {
	if body == "" {
		contentType = ""
	}
	msg := "BITSTAMP " + c.config.APIKey + method + host + path + query + contentType + nonce + timestamp + "v2" + body

	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(msg))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func reasons(e errorResponse) []string {
	var s string
	if err := json.Unmarshal(e.Reason, &s); err == nil {
		return []string{s}
	}
	var fields map[string][]string
	if err := json.Unmarshal(e.Reason, &fields); err == nil {
		var out []string
		for k, msgs := range fields {
			for _, m := range msgs {
				out = append(out, k+": "+m)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	if e.Code != "" {
		return []string{e.Code}
	}
	return nil
}

// rawID accepts both numeric and string ids.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return s
}
