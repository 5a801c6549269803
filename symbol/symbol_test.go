package symbol

import (
	"testing"

	"github.com/pkg/errors"

	"spread-arbitrage/trading"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		pair  string
		venue trading.Venue
		want  string
	}{
		{"BTCEUR", trading.Kraken, "XXBTZEUR"},
		{"BTCEUR", trading.Bitstamp, "btceur"},
		{"ETHUSD", trading.Kraken, "XETHZUSD"},
		{"ETHBTC", trading.Kraken, "XETHXXBT"},
		{"LTCJPY", trading.Kraken, "XLTCZJPY"},
		{"EURGBP", trading.Kraken, "ZEURZGBP"},
		{"XRPCAD", trading.Bitstamp, "xrpcad"},
		{"btcusd", trading.Kraken, "XXBTZUSD"},
	}

	for _, tt := range tests {
		got, err := Translate(tt.pair, tt.venue)
		if err != nil {
			t.Errorf("Translate(%q, %s) unexpected error: %v", tt.pair, tt.venue, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Translate(%q, %s) = %q, want %q", tt.pair, tt.venue, got, tt.want)
		}
	}
}

func TestTranslateInvalidPair(t *testing.T) {
	for _, s := range []string{"BTC", "BTCEURO", "BTC/EU", "123456"} {
		for _, v := range trading.Venues {
			if _, err := Translate(s, v); !errors.Is(err, trading.ErrInvalidPairFormat) {
				t.Errorf("Translate(%q, %s) error = %v, want ErrInvalidPairFormat", s, v, err)
			}
		}
	}
}

func TestForVenueUnknownVenue(t *testing.T) {
	pair := trading.Pair{Base: "BTC", Quote: "EUR"}
	if _, err := ForVenue(pair, trading.Venue("binance")); !errors.Is(err, trading.ErrUnknownVenue) {
		t.Fatalf("want ErrUnknownVenue, got %v", err)
	}
}
