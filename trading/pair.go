package trading

import (
	"strings"

	"github.com/pkg/errors"
)

// Pair is a trading pair made of two distinct 3-letter currency codes.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses a canonical 6-character pair symbol such as "BTCEUR".
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 6 {
		return Pair{}, errors.Wrapf(ErrInvalidPairFormat, "%q: want two 3-letter codes", s)
	}
	p := Pair{Base: s[:3], Quote: s[3:]}
	if err := p.Validate(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

func (p Pair) Validate() error {
	if !isCode(p.Base) || !isCode(p.Quote) {
		return errors.Wrapf(ErrInvalidPairFormat, "%q", p.Base+p.Quote)
	}
	if p.Base == p.Quote {
		return errors.Wrapf(ErrInvalidPairFormat, "%q: base and quote are the same", p.Base+p.Quote)
	}
	return nil
}

func (p Pair) String() string {
	return p.Base + p.Quote
}

func isCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
