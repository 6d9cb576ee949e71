package event

import "github.com/shopspring/decimal"

// Type discriminates the events flowing through the reactor inbox.
type Type int

const (
	TypePriceTick Type = iota + 1
	TypeOrderUpdate
	TypeCancelResult
)

// Event is anything the reactor can consume from its inbox.
type Event interface {
	Kind() Type
}

// PriceTick is one trade-price update from the market stream.
type PriceTick struct {
	Symbol string
	Price  decimal.Decimal
	Ts     int64 // Exchange timestamp, Unix milliseconds
}

func (e *PriceTick) Kind() Type { return TypePriceTick }

// OrderUpdate is one execution report from the user-data stream.
type OrderUpdate struct {
	OrderID      int64
	Symbol       string
	Side         string
	OrderType    string
	Status       string
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	FeeAsset     string
	RejectReason string
	Ts           int64
}

func (e *OrderUpdate) Kind() Type { return TypeOrderUpdate }

// CancelResult reports the outcome of an in-flight cancellation request.
// Posted back to the inbox by the reactor itself, never by a worker.
type CancelResult struct {
	OrderID int64
	Err     error
}

func (e *CancelResult) Kind() Type { return TypeCancelResult }
