package domain

import "github.com/shopspring/decimal"

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket        = "MARKET"
	OrderTypeLimit         = "LIMIT"
	OrderTypeStopLossLimit = "STOP_LOSS_LIMIT"

	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
	OrderStatusRejected        = "REJECTED"
	OrderStatusExpired         = "EXPIRED"
)

// Role identifies which leg of the trade an order belongs to.
// At most one order is outstanding per role at a time, and the entry
// role is mutually exclusive with the two sell-side roles.
type Role int

const (
	RoleEntry Role = iota + 1
	RoleStop
	RoleTarget
)

// String returns the string representation of Role
func (r Role) String() string {
	switch r {
	case RoleEntry:
		return "ENTRY"
	case RoleStop:
		return "STOP"
	case RoleTarget:
		return "TARGET"
	default:
		return "UNKNOWN"
	}
}

// OrderRequest describes a single order to be submitted to the exchange.
// Price and StopPrice are zero when the order type does not use them.
type OrderRequest struct {
	Symbol    string
	Side      string
	Type      string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// Fill is one execution reported on a placement response.
type Fill struct {
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	CommissionAsset string
}

// OrderResult is the exchange's response to a placement request.
// Market orders may come back already FILLED, with the fills attached.
type OrderResult struct {
	OrderID int64
	Status  string
	Fills   []Fill
}

// FeeAsset returns the commission asset of the first fill, if any.
func (r *OrderResult) FeeAsset() string {
	if r == nil || len(r.Fills) == 0 {
		return ""
	}
	return r.Fills[0].CommissionAsset
}

// IsTerminalStatus reports whether a status ends an order's life without a full fill.
func IsTerminalStatus(status string) bool {
	switch status {
	case OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}
