package execution

import (
	"context"
	"testing"

	"ocobot/internal/domain"
	"ocobot/internal/event"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMarketOrderFillsImmediately(t *testing.T) {
	p := NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, nil)

	res, err := p.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "ETHBTC",
		Side:     domain.SideBuy,
		Type:     domain.OrderTypeMarket,
		Quantity: dec("10"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if res.Status != domain.OrderStatusFilled {
		t.Errorf("expected FILLED, got %s", res.Status)
	}
	if res.FeeAsset() != domain.FeeAssetBNB {
		t.Errorf("expected BNB fee asset, got %s", res.FeeAsset())
	}
	if !res.Fills[0].Price.Equal(dec("0.035")) {
		t.Errorf("expected fill at 0.035, got %s", res.Fills[0].Price)
	}
}

func TestLimitSellFillsOnCross(t *testing.T) {
	inbox := make(chan event.Event, 4)
	p := NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, inbox)

	res, err := p.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "ETHBTC",
		Side:     domain.SideSell,
		Type:     domain.OrderTypeLimit,
		Quantity: dec("10"),
		Price:    dec("0.04"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if res.Status != domain.OrderStatusNew {
		t.Fatalf("expected NEW, got %s", res.Status)
	}

	// Below the limit: still resting.
	p.OnPrice(context.Background(), dec("0.039"))
	if p.RestingCount() != 1 {
		t.Fatalf("expected 1 resting order, got %d", p.RestingCount())
	}

	// At the limit: filled and reported.
	p.OnPrice(context.Background(), dec("0.04"))
	if p.RestingCount() != 0 {
		t.Fatalf("expected 0 resting orders, got %d", p.RestingCount())
	}

	ev := <-inbox
	update, ok := ev.(*event.OrderUpdate)
	if !ok {
		t.Fatalf("expected OrderUpdate, got %T", ev)
	}
	if update.OrderID != res.OrderID {
		t.Errorf("expected order id %d, got %d", res.OrderID, update.OrderID)
	}
	if update.Status != domain.OrderStatusFilled {
		t.Errorf("expected FILLED, got %s", update.Status)
	}
	if !update.Price.Equal(dec("0.04")) {
		t.Errorf("expected fill at limit 0.04, got %s", update.Price)
	}
}

func TestStopSellTriggersBelowStop(t *testing.T) {
	inbox := make(chan event.Event, 4)
	p := NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, inbox)

	_, err := p.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:    "ETHBTC",
		Side:      domain.SideSell,
		Type:      domain.OrderTypeStopLossLimit,
		Quantity:  dec("10"),
		Price:     dec("0.029"),
		StopPrice: dec("0.03"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	// Above the trigger: resting.
	p.OnPrice(context.Background(), dec("0.031"))
	if p.RestingCount() != 1 {
		t.Fatalf("stop triggered early")
	}

	p.OnPrice(context.Background(), dec("0.03"))
	if p.RestingCount() != 0 {
		t.Fatalf("stop did not trigger at the stop price")
	}
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	p := NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, nil)

	res, _ := p.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "ETHBTC",
		Side:     domain.SideSell,
		Type:     domain.OrderTypeLimit,
		Quantity: dec("10"),
		Price:    dec("0.04"),
	})

	if err := p.CancelOrder(context.Background(), "ETHBTC", res.OrderID); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if p.RestingCount() != 0 {
		t.Errorf("expected 0 resting orders, got %d", p.RestingCount())
	}

	// A second cancel fails: the order is gone.
	if err := p.CancelOrder(context.Background(), "ETHBTC", res.OrderID); err == nil {
		t.Error("expected error cancelling a gone order")
	}
}

func TestPairRulesUnknownSymbol(t *testing.T) {
	p := NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, nil)

	if _, err := p.PairRules(context.Background(), "NOPEBTC"); err != domain.ErrPairNotFound {
		t.Errorf("expected ErrPairNotFound, got %v", err)
	}
	if _, err := p.PairRules(context.Background(), "ETHBTC"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
