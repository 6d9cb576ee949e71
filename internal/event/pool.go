package event

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Pools for high-frequency event allocation. The price stream ticks at
// exchange cadence with no frequency bound, so tick events are recycled
// to reduce GC pressure in the hotpath.
var priceTickPool = sync.Pool{
	New: func() interface{} {
		return &PriceTick{}
	},
}

// AcquirePriceTick gets a PriceTick from the pool.
// The returned event has zero values and must be initialized.
func AcquirePriceTick() *PriceTick {
	return priceTickPool.Get().(*PriceTick)
}

// ReleasePriceTick returns a PriceTick to the pool.
func ReleasePriceTick(ev *PriceTick) {
	if ev == nil {
		return
	}
	ev.Symbol = ""
	ev.Price = decimal.Zero
	ev.Ts = 0

	priceTickPool.Put(ev)
}

// OrderUpdate pool
var orderUpdatePool = sync.Pool{
	New: func() interface{} {
		return &OrderUpdate{}
	},
}

// AcquireOrderUpdate gets an OrderUpdate from the pool.
func AcquireOrderUpdate() *OrderUpdate {
	return orderUpdatePool.Get().(*OrderUpdate)
}

// ReleaseOrderUpdate returns an OrderUpdate to the pool.
func ReleaseOrderUpdate(ev *OrderUpdate) {
	if ev == nil {
		return
	}
	ev.OrderID = 0
	ev.Symbol = ""
	ev.Side = ""
	ev.OrderType = ""
	ev.Status = ""
	ev.Price = decimal.Zero
	ev.Quantity = decimal.Zero
	ev.FeeAsset = ""
	ev.RejectReason = ""
	ev.Ts = 0

	orderUpdatePool.Put(ev)
}
