// Package execution provides a simulated exchange for dry runs.
// Orders never leave the process; resting orders fill when the fed
// price crosses them, and fills are reported through the same event
// inbox the live stream workers use.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ocobot/internal/domain"
	"ocobot/internal/event"

	"github.com/shopspring/decimal"
)

type restingOrder struct {
	id  int64
	req domain.OrderRequest
}

// PaperExchange simulates order matching against a fed price feed.
type PaperExchange struct {
	mu       sync.Mutex
	symbol   string
	rules    *domain.PairRules
	price    decimal.Decimal
	nextID   int64
	resting  map[int64]restingOrder
	inbox    chan<- event.Event
	feeAsset string
}

// NewPaperExchange simulates the given pair. Fills pay commission in
// feeAsset; pass domain.FeeAssetBNB for fee-free quantity math.
func NewPaperExchange(symbol string, rules *domain.PairRules, startPrice decimal.Decimal, feeAsset string, inbox chan<- event.Event) *PaperExchange {
	return &PaperExchange{
		symbol:   symbol,
		rules:    rules,
		price:    startPrice,
		nextID:   1000,
		resting:  make(map[int64]restingOrder),
		inbox:    inbox,
		feeAsset: feeAsset,
	}
}

// SetInbox points fill reports at the reactor inbox. Must be called
// before the first OnPrice when the inbox was not known at build time.
func (p *PaperExchange) SetInbox(inbox chan<- event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inbox = inbox
}

// PlaceOrder fills market orders immediately at the current price and
// rests everything else until the feed crosses it.
func (p *PaperExchange) PlaceOrder(_ context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := p.nextID

	if req.Type == domain.OrderTypeMarket {
		return &domain.OrderResult{
			OrderID: id,
			Status:  domain.OrderStatusFilled,
			Fills: []domain.Fill{{
				Price:           p.price,
				Quantity:        req.Quantity,
				CommissionAsset: p.feeAsset,
			}},
		}, nil
	}

	p.resting[id] = restingOrder{id: id, req: req}
	return &domain.OrderResult{
		OrderID: id,
		Status:  domain.OrderStatusNew,
	}, nil
}

// CancelOrder removes a resting order. Fails if the order already
// filled or never existed, matching live exchange behavior.
func (p *PaperExchange) CancelOrder(_ context.Context, symbol string, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.resting[orderID]; !ok {
		return fmt.Errorf("order %d not found on %s", orderID, symbol)
	}
	delete(p.resting, orderID)
	return nil
}

func (p *PaperExchange) CurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.price, nil
}

func (p *PaperExchange) PairRules(_ context.Context, symbol string) (*domain.PairRules, error) {
	if symbol != p.symbol {
		return nil, domain.ErrPairNotFound
	}
	return p.rules, nil
}

// OnPrice advances the simulated market and fills any resting order
// the new price crosses. Fill reports go through the inbox like live
// execution reports.
func (p *PaperExchange) OnPrice(ctx context.Context, price decimal.Decimal) {
	p.mu.Lock()
	p.price = price

	var filled []restingOrder
	for id, ro := range p.resting {
		if p.crosses(ro.req, price) {
			filled = append(filled, ro)
			delete(p.resting, id)
		}
	}
	p.mu.Unlock()

	for _, ro := range filled {
		ev := event.AcquireOrderUpdate()
		ev.OrderID = ro.id
		ev.Symbol = ro.req.Symbol
		ev.Side = ro.req.Side
		ev.OrderType = ro.req.Type
		ev.Status = domain.OrderStatusFilled
		ev.Price = fillPrice(ro.req, price)
		ev.Quantity = ro.req.Quantity
		ev.FeeAsset = p.feeAsset
		ev.Ts = time.Now().UnixMilli()

		select {
		case p.inbox <- ev:
		case <-ctx.Done():
			event.ReleaseOrderUpdate(ev)
			return
		}
	}
}

// crosses decides whether a resting order executes at the given price.
// Stop orders trigger on their stop price; limit orders on their limit.
func (p *PaperExchange) crosses(req domain.OrderRequest, price decimal.Decimal) bool {
	if req.Type == domain.OrderTypeStopLossLimit {
		if req.Side == domain.SideSell {
			return price.LessThanOrEqual(req.StopPrice)
		}
		return price.GreaterThanOrEqual(req.StopPrice)
	}
	if req.Side == domain.SideSell {
		return price.GreaterThanOrEqual(req.Price)
	}
	return price.LessThanOrEqual(req.Price)
}

func fillPrice(req domain.OrderRequest, tickPrice decimal.Decimal) decimal.Decimal {
	if !req.Price.IsZero() {
		return req.Price
	}
	return tickPrice
}

// RestingCount reports how many orders are currently on the book.
func (p *PaperExchange) RestingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resting)
}
