package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"spread-arbitrage/trading"
)

const DefaultURL = "https://api.kraken.com"

var errMalformed = errors.New("malformed response")

type Config struct {
	URL       string
	APIKey    string
	APISecret string

	// RequestsPerSecond caps calls to the venue. Defaults to 1.
	RequestsPerSecond float64
}

type client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	mu        sync.Mutex
	lastNonce int64
}

type response struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

type tickerInfo struct {
	// Ask is [price, whole lot volume, lot volume].
	Ask []string `json:"a"`
}

type addOrderResult struct {
	Descr struct {
		Order string `json:"order"`
	} `json:"descr"`
	TxID []string `json:"txid"`
}

type orderInfo struct {
	Status  string `json:"status"`
	VolExec string `json:"vol_exec"`
}

func NewClient(config Config, httpClient *http.Client, logger *zap.Logger) trading.Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 1
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &client{
		config:  config,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:  logger.With(zap.String("venue", trading.Kraken.String())),
	}
}

func (c *client) Venue() trading.Venue {
	return trading.Kraken
}

func (c *client) GetAskPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("pair", symbol)

	result, err := c.public(ctx, "/0/public/Ticker", q, "ticker")
	if errors.Is(err, errMalformed) {
		return decimal.Zero, errors.Wrap(trading.ErrQuoteUnavailable, err.Error())
	}
	if err != nil {
		return decimal.Zero, err
	}

	var tickers map[string]tickerInfo
	if err := json.Unmarshal(result, &tickers); err != nil {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "decode ticker: %v", err)
	}
	ticker, ok := tickers[symbol]
	if !ok || len(ticker.Ask) == 0 {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "no ask for %s", symbol)
	}
	ask, err := decimal.NewFromString(ticker.Ask[0])
	if err != nil {
		return decimal.Zero, errors.Wrapf(trading.ErrQuoteUnavailable, "ask %q: %v", ticker.Ask[0], err)
	}
	return ask, nil
}

func (c *client) Buy(ctx context.Context, req trading.BuyRequest) (trading.TradeResponse, error) {
	return c.addOrder(ctx, "buy", req.TradeRequest)
}

func (c *client) Sell(ctx context.Context, req trading.SellRequest) (trading.TradeResponse, error) {
	return c.addOrder(ctx, "sell", req.TradeRequest)
}

func (c *client) addOrder(ctx context.Context, side string, req trading.TradeRequest) (trading.TradeResponse, error) {
	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = uuid.NewString()
	}

	form := url.Values{}
	form.Set("ordertype", "market")
	form.Set("type", side)
	form.Set("volume", req.Volume.String())
	form.Set("pair", req.Symbol)
	form.Set("cl_ord_id", clientOrderID)

	result, err := c.private(ctx, "/0/private/AddOrder", form, side)
	if err != nil {
		return trading.TradeResponse{}, err
	}

	var added addOrderResult
	if err := json.Unmarshal(result, &added); err != nil {
		return trading.TradeResponse{}, errors.Wrap(err, "decode AddOrder result")
	}
	resp := trading.TradeResponse{Raw: string(result)}
	if len(added.TxID) > 0 {
		resp.OrderID = added.TxID[0]
	}
	return resp, nil
}

func (c *client) GetOrderDetail(ctx context.Context, req trading.GetOrderDetailRequest) (trading.GetOrderDetailResponse, error) {
	form := url.Values{}
	form.Set("txid", req.OrderID)

	result, err := c.private(ctx, "/0/private/QueryOrders", form, "query orders")
	if err != nil {
		return trading.GetOrderDetailResponse{}, err
	}

	var orders map[string]orderInfo
	if err := json.Unmarshal(result, &orders); err != nil {
		return trading.GetOrderDetailResponse{}, errors.Wrap(err, "decode QueryOrders result")
	}
	order, ok := orders[req.OrderID]
	if !ok {
		return trading.GetOrderDetailResponse{}, &trading.VenueError{Venue: trading.Kraken, Op: "query orders", Messages: []string{"unknown order " + req.OrderID}}
	}

	executed := decimal.Zero
	if order.VolExec != "" {
		if executed, err = decimal.NewFromString(order.VolExec); err != nil {
			return trading.GetOrderDetailResponse{}, errors.Wrapf(err, "vol_exec %q", order.VolExec)
		}
	}
	return trading.GetOrderDetailResponse{
		OrderID:  req.OrderID,
		Status:   order.Status,
		Executed: executed,
	}, nil
}

func (c *client) public(ctx context.Context, path string, query url.Values, op string) (json.RawMessage, error) {
	u, err := url.Parse(c.config.URL + path)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(httpReq, op)
}

func (c *client) private(ctx context.Context, path string, form url.Values, op string) (json.RawMessage, error) {
	u, err := url.Parse(c.config.URL + path)
	if err != nil {
		return nil, err
	}

	nonce := c.nonce()
	form.Set("nonce", nonce)
	body := form.Encode()

	signature, err := c.sign(u.Path, nonce, body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	httpReq.Header.Set("API-Key", c.config.APIKey)
	httpReq.Header.Set("API-Sign", signature)

	return c.do(httpReq, op)
}

func (c *client) do(httpReq *http.Request, op string) (json.RawMessage, error) {
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

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get http response code %d and body %s", res.StatusCode, resBody)
	}
	c.logger.Debug("get response", zap.String("op", op), zap.ByteString("body", resBody))

	var r response
	if err := json.Unmarshal(resBody, &r); err != nil {
		return nil, errors.Wrapf(errMalformed, "decode %s response: %v", op, err)
	}
	if len(r.Error) > 0 {
		return nil, &trading.VenueError{Venue: trading.Kraken, Op: op, Messages: r.Error}
	}
	return r.Result, nil
}

// nonce returns a strictly increasing millisecond nonce.
func (c *client) nonce() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := time.Now().UnixMilli()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

// sign computes API-Sign: base64(HMAC-SHA512(secret, path + SHA256(nonce + body))).
func (c *client) sign(path, nonce, body string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.config.APISecret)
	if err != nil {
		return "", errors.Wrap(err, "decode api secret")
	}

	sha := sha256.Sum256([]byte(nonce + body))
	mac := hmac.New(sha512.New, secret)
	mac.Write(append([]byte(path), sha[:]...))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
