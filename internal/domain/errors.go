package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// FatalError defines an interface for errors that must halt the trade
type FatalError interface {
	error
	IsFatal() bool
}

// IsFatal checks if an error must halt the trade. Errors that do not
// classify themselves are treated as fatal: guessing at exchange state
// is worse than stopping.
func IsFatal(err error) bool {
	var fe FatalError
	if errors.As(err, &fe) {
		return fe.IsFatal()
	}
	return true
}

// ConformanceError reports an input that violates the exchange's
// quantization or minimum rules. Always raised before any order exists.
type ConformanceError struct {
	Label string          // Which input failed (e.g. "amount", "stop price")
	Value decimal.Decimal // The offending value after rounding
	Min   decimal.Decimal // The exchange minimum it fell below
	Rule  string          // "quantity", "price" or "notional"
}

func (e *ConformanceError) Error() string {
	return fmt.Sprintf("conformance error [%s]: %s %s below exchange minimum %s",
		e.Label, e.Rule, e.Value.String(), e.Min.String())
}

func (e *ConformanceError) IsFatal() bool {
	return true
}

// PlacementError wraps a failed order placement. The trade cannot safely
// continue in an unknown state, so this is always fatal.
type PlacementError struct {
	Role Role
	Err  error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("placing %s order: %s", e.Role, e.Err.Error())
}

func (e *PlacementError) IsFatal() bool {
	return true
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// CancelError wraps a failed cancellation request. Non-fatal: the
// triggering condition re-evaluates on the next matching event.
type CancelError struct {
	OrderID int64
	Err     error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("cancelling order %d: %s", e.OrderID, e.Err.Error())
}

func (e *CancelError) IsFatal() bool {
	return false
}

func (e *CancelError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError reports an order that reached a terminal non-fill
// status outside an explicitly requested cancellation. Intent and exchange
// state have desynchronized; fatal.
type UnexpectedStatusError struct {
	Role    Role
	OrderID int64
	Status  string
	Reason  string
}

func (e *UnexpectedStatusError) Error() string {
	msg := fmt.Sprintf("%s order %d reported %s", e.Role, e.OrderID, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnexpectedStatusError) IsFatal() bool {
	return true
}

var (
	// ErrPairNotFound is returned when the exchange does not list the requested pair.
	ErrPairNotFound = errors.New("trading pair not found")

	// ErrConnectionFailed is returned when a stream connection fails. Usually retriable.
	ErrConnectionFailed = errors.New("connection failed")
)
