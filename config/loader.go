package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Load merges the TOML file at path (skipped when path is empty) on top of
// the defaults, then applies environment overrides. A .env file in the
// working directory is loaded first if present; a malformed one is an error.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
	}

	// .env is optional, but one that exists must parse.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	setStr(&cfg.Asset, "ASSET")
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	setStr(&cfg.Kraken.APIKey, "KRAKEN_KEY")
	setStr(&cfg.Kraken.APISecret, "KRAKEN_SECRET")
	setStr(&cfg.Bitstamp.APIKey, "BITSTAMP_KEY")
	setStr(&cfg.Bitstamp.APISecret, "BITSTAMP_SECRET")

	setStr(&cfg.Notify.SNSRegion, "SNS_REGION")
	setStr(&cfg.Notify.SNSTopicARN, "SNS_TOPIC_ARN")
	setStr(&cfg.Notify.TelegramToken, "TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TELEGRAM_CHAT_ID")

	setStr(&cfg.Server.Listen, "LISTEN_ADDR")

	if err := setDecimal(&cfg.Amount, "AMOUNT"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.SpreadThreshold, "SPREAD_THRESHOLD"); err != nil {
		return err
	}
	return setBool(&cfg.DryRun, "DRY_RUN")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Money settings are never silently ignored.
func setDecimal(dst *decimal.Decimal, key string) error {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
		*dst = d
	}
	return nil
}

func setBool(dst *bool, key string) error {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
		*dst = b
	}
	return nil
}
