package executor

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"spread-arbitrage/spread"
	"spread-arbitrage/trading"
)

type State string

const (
	StateIdle            State = "Idle"
	StatePricesFetched   State = "PricesFetched"
	StateSpreadEvaluated State = "SpreadEvaluated"
	StateExecuting       State = "Executing"

	StateSkipped                State = "Skipped"
	StateCompleted              State = "Completed"
	StatePartialFailure         State = "PartialFailure"
	StateAbortedBeforeExecution State = "AbortedBeforeExecution"
)

// Status tells callers how an invocation ended. The values double as HTTP
// status codes for the webhook trigger.
type Status int

const (
	StatusSkipped        Status = 200
	StatusCompleted      Status = 201
	StatusAborted        Status = 400
	StatusPartialFailure Status = 500
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "success-skipped"
	case StatusCompleted:
		return "success-completed"
	case StatusAborted:
		return "execution-aborted"
	case StatusPartialFailure:
		return "partial-failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Leg is the intent to execute one market order.
type Leg struct {
	Venue         trading.Venue
	Side          trading.Side
	Symbol        string
	Volume        decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID string
}

func (l Leg) String() string {
	return fmt.Sprintf("%s %s %s on %s at %s", l.Side, l.Volume.StringFixed(6), l.Symbol, l.Venue, l.Price)
}

// ExecutedLeg is a leg the venue confirmed with an order id.
type ExecutedLeg struct {
	Leg
	OrderID string
}

// FailedLeg is a leg the venue rejected or did not confirm.
type FailedLeg struct {
	Leg
	Err error
}

// Outcome is one of NotTriggered, Completed, PartialFailure or
// AbortedBeforeExecution.
type Outcome interface {
	State() State
	Status() Status
	Severity() Severity
	Message() string
}

type NotTriggered struct {
	Pair      trading.Pair
	Spread    spread.Result
	Threshold decimal.Decimal
}

func (NotTriggered) State() State       { return StateSkipped }
func (NotTriggered) Status() Status     { return StatusSkipped }
func (NotTriggered) Severity() Severity { return SeverityInfo }

func (o NotTriggered) Message() string {
	return fmt.Sprintf("not triggered: %s spread %s%% (%s %s, %s %s) is below threshold %s%%",
		o.Pair, o.Spread.Percent.StringFixed(2),
		o.Spread.Cheaper.Venue, o.Spread.Cheaper.Ask,
		o.Spread.Expensive.Venue, o.Spread.Expensive.Ask,
		o.Threshold)
}

type Completed struct {
	Pair     trading.Pair
	Spread   spread.Result
	Buy      ExecutedLeg
	Sell     ExecutedLeg
	Cost     decimal.Decimal
	Proceeds decimal.Decimal
	Profit   decimal.Decimal
}

func (Completed) State() State       { return StateCompleted }
func (Completed) Status() Status     { return StatusCompleted }
func (Completed) Severity() Severity { return SeverityInfo }

func (o Completed) Message() string {
	return fmt.Sprintf("completed: bought %s %s on %s at %s (order %s) for %s %s, sold on %s at %s (order %s) for %s %s, estimated profit %s %s",
		o.Buy.Volume.StringFixed(6), o.Pair.Base, o.Buy.Venue, o.Buy.Price, o.Buy.OrderID,
		o.Cost.StringFixed(2), o.Pair.Quote,
		o.Sell.Venue, o.Sell.Price, o.Sell.OrderID,
		o.Proceeds.StringFixed(2), o.Pair.Quote,
		o.Profit.StringFixed(2), o.Pair.Quote)
}

// PartialFailure means the buy leg executed and the sell leg did not. The
// account holds an unhedged long position that needs manual attention.
type PartialFailure struct {
	Pair   trading.Pair
	Spread spread.Result
	Buy    ExecutedLeg
	Sell   FailedLeg
}

func (PartialFailure) State() State       { return StatePartialFailure }
func (PartialFailure) Status() Status     { return StatusPartialFailure }
func (PartialFailure) Severity() Severity { return SeverityCritical }

func (o PartialFailure) Message() string {
	return fmt.Sprintf("PARTIAL FAILURE, manual hedge required: bought %s %s on %s at %s (order %s, client order %s) but selling on %s failed: %v",
		o.Buy.Volume.StringFixed(6), o.Pair.Base, o.Buy.Venue, o.Buy.Price, o.Buy.OrderID, o.Buy.ClientOrderID,
		o.Sell.Venue, o.Sell.Err)
}

// AbortedBeforeExecution means no order was confirmed. Buy is set when the
// buy leg was attempted and failed.
type AbortedBeforeExecution struct {
	Pair  trading.Pair
	Stage State
	Err   error
	Buy   *FailedLeg
}

func (AbortedBeforeExecution) State() State       { return StateAbortedBeforeExecution }
func (AbortedBeforeExecution) Status() Status     { return StatusAborted }
func (AbortedBeforeExecution) Severity() Severity { return SeverityWarning }

func (o AbortedBeforeExecution) Message() string {
	if o.Buy != nil {
		return fmt.Sprintf("aborted: buy leg (%s) failed: %v", o.Buy.Leg, o.Err)
	}
	return fmt.Sprintf("aborted in state %s: %v", o.Stage, o.Err)
}

// Result is what every invocation returns to its caller.
type Result struct {
	State   State
	Status  Status
	Message string
	Outcome Outcome
}

func newResult(o Outcome) Result {
	return Result{
		State:   o.State(),
		Status:  o.Status(),
		Message: o.Message(),
		Outcome: o,
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State      State  `json:"state"`
		StatusCode int    `json:"statusCode"`
		Status     string `json:"status"`
		Message    string `json:"message"`
	}{
		State:      r.State,
		StatusCode: int(r.Status),
		Status:     r.Status.String(),
		Message:    r.Message,
	})
}
