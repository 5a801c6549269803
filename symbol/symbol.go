// Package symbol maps canonical pair symbols such as "BTCEUR" to the native
// symbols each venue expects.
package symbol

import (
	"strings"

	"github.com/pkg/errors"

	"spread-arbitrage/trading"
)

var fiatCurrencies = map[string]bool{
	"USD": true,
	"EUR": true,
	"JPY": true,
	"GBP": true,
	"CAD": true,
}

// ForVenue returns the venue-native symbol for pair.
func ForVenue(pair trading.Pair, venue trading.Venue) (string, error) {
	if err := pair.Validate(); err != nil {
		return "", err
	}

	switch venue {
	case trading.Kraken:
		return krakenCode(pair.Base) + krakenCode(pair.Quote), nil
	case trading.Bitstamp:
		return strings.ToLower(pair.String()), nil
	}
	return "", errors.Wrapf(trading.ErrUnknownVenue, "%q", venue)
}

// Translate parses s as a canonical pair symbol and translates it for venue.
func Translate(s string, venue trading.Venue) (string, error) {
	pair, err := trading.ParsePair(s)
	if err != nil {
		return "", err
	}
	return ForVenue(pair, venue)
}

func isFiat(code string) bool {
	return fiatCurrencies[code]
}

// krakenCode prefixes fiat codes with Z and everything else with X. Kraken
// quotes bitcoin as XBT.
func krakenCode(code string) string {
	if isFiat(code) {
		return "Z" + code
	}
	if code == "BTC" {
		code = "XBT"
	}
	return "X" + code
}
