package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange defines the request/response boundary to the trading venue.
// Implementations never retry on behalf of the caller; an error is the
// caller's to classify.
type Exchange interface {
	// PlaceOrder submits an order and returns the exchange's response.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	// CancelOrder cancels a resting order. Fails if the order is already
	// filled or cancelled.
	CancelOrder(ctx context.Context, symbol string, orderID int64) error

	// CurrentPrice returns a single price snapshot for the pair.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// PairRules fetches the conformance rules for the pair.
	// Returns ErrPairNotFound when the exchange does not list it.
	PairRules(ctx context.Context, symbol string) (*PairRules, error)
}

// StreamWorker defines the interface for the push-stream connectors
// feeding the reactor inbox.
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
