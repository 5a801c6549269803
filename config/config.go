package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"

	"spread-arbitrage/bitstamp"
	"spread-arbitrage/kraken"
	"spread-arbitrage/trading"
)

// Config is the runtime configuration for one arbitrage engine instance.
type Config struct {
	Asset           string          `toml:"asset"`
	Amount          decimal.Decimal `toml:"amount"`
	SpreadThreshold decimal.Decimal `toml:"spread_threshold"`
	LogLevel        string          `toml:"log_level"`
	DryRun          bool            `toml:"dry_run"`

	Kraken   VenueConfig  `toml:"kraken"`
	Bitstamp VenueConfig  `toml:"bitstamp"`
	Notify   NotifyConfig `toml:"notify"`
	Server   ServerConfig `toml:"server"`
}

type VenueConfig struct {
	URL               string  `toml:"url"`
	APIKey            string  `toml:"api_key"`
	APISecret         string  `toml:"api_secret"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// NotifyConfig selects the notification channels. A channel is enabled when
// its destination is set.
type NotifyConfig struct {
	Subject        string `toml:"subject"`
	SNSRegion      string `toml:"sns_region"`
	SNSTopicARN    string `toml:"sns_topic_arn"`
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
}

func Defaults() Config {
	return Config{
		Asset:           "BTCEUR",
		SpreadThreshold: decimal.NewFromInt(1),
		LogLevel:        "info",
		Kraken: VenueConfig{
			URL:               kraken.DefaultURL,
			RequestsPerSecond: 1,
		},
		Bitstamp: VenueConfig{
			URL:               bitstamp.DefaultURL,
			RequestsPerSecond: 10,
		},
		Notify: NotifyConfig{
			Subject: "BTCINVEST",
		},
		Server: ServerConfig{
			Listen: "localhost:8888",
		},
	}
}

// Pair returns the parsed trading pair.
func (c *Config) Pair() (trading.Pair, error) {
	return trading.ParsePair(c.Asset)
}

func (c *Config) Validate() error {
	var errs []string

	if _, err := c.Pair(); err != nil {
		errs = append(errs, fmt.Sprintf("asset: %v", err))
	}
	if !c.Amount.IsPositive() {
		errs = append(errs, fmt.Sprintf("amount must be > 0, got %s", c.Amount))
	}
	if c.SpreadThreshold.IsNegative() {
		errs = append(errs, fmt.Sprintf("spread_threshold must be >= 0, got %s", c.SpreadThreshold))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}

	for _, v := range []struct {
		name string
		cfg  VenueConfig
	}{
		{trading.Kraken.String(), c.Kraken},
		{trading.Bitstamp.String(), c.Bitstamp},
	} {
		if v.cfg.URL == "" {
			errs = append(errs, v.name+": url is required")
		}
		if v.cfg.RequestsPerSecond < 0 {
			errs = append(errs, v.name+": requests_per_second must be >= 0")
		}
		if !c.DryRun && (v.cfg.APIKey == "" || v.cfg.APISecret == "") {
			errs = append(errs, v.name+": api_key and api_secret are required unless dry_run is set")
		}
	}

	if (c.Notify.SNSRegion == "") != (c.Notify.SNSTopicARN == "") {
		errs = append(errs, "notify: sns_region and sns_topic_arn must be set together")
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return errors.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
