package trading

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPairFormat = errors.New("invalid pair format")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidBudget     = errors.New("invalid budget")
	ErrUnknownVenue      = errors.New("unknown venue")

	ErrVenueUnreachable = errors.New("venue unreachable")
	ErrQuoteUnavailable = errors.New("quote unavailable")
)

// VenueError is returned when a venue answers a request with an explicit
// rejection, as opposed to a transport failure.
type VenueError struct {
	Venue    Venue
	Op       string
	Messages []string
}

func (e *VenueError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s %s: rejected by venue", e.Venue, e.Op)
	}
	return fmt.Sprintf("%s %s: %s", e.Venue, e.Op, strings.Join(e.Messages, "; "))
}

// FetchError attaches a venue and an error class (ErrVenueUnreachable or
// ErrQuoteUnavailable) to a failed price query.
type FetchError struct {
	Venue Venue
	Kind  error
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Venue, e.Kind, e.Err)
}

func (e *FetchError) Is(target error) bool {
	return target == e.Kind
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
