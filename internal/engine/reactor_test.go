package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ocobot/internal/domain"
	"ocobot/internal/event"
	"ocobot/internal/execution"
	"ocobot/internal/infra"

	"github.com/shopspring/decimal"
)

type fakeJournal struct {
	mu       sync.Mutex
	orders   int
	statuses int
	outcome  string
}

func (j *fakeJournal) RecordOrder(domain.Role, int64, domain.OrderRequest, string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders++
	return nil
}

func (j *fakeJournal) RecordOrderStatus(int64, string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.statuses++
	return nil
}

func (j *fakeJournal) RecordOutcome(outcome string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcome = outcome
	return nil
}

func (j *fakeJournal) recordedOutcome() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

// failingExchange rejects every placement.
type failingExchange struct{}

func (failingExchange) PlaceOrder(context.Context, domain.OrderRequest) (*domain.OrderResult, error) {
	return nil, errors.New("insufficient balance")
}
func (failingExchange) CancelOrder(context.Context, string, int64) error { return nil }
func (failingExchange) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (failingExchange) PairRules(context.Context, string) (*domain.PairRules, error) {
	return &domain.PairRules{}, nil
}

// pumpPrice repeatedly feeds one price to the paper exchange and the
// reactor until done closes, the way the live tick stream would.
func pumpPrice(done <-chan struct{}, paper *execution.PaperExchange, inbox chan<- event.Event, price decimal.Decimal) {
	ctx := context.Background()
	for {
		select {
		case <-done:
			return
		default:
		}
		paper.OnPrice(ctx, price)

		tick := event.AcquirePriceTick()
		tick.Symbol = "ETHBTC"
		tick.Price = price
		select {
		case inbox <- tick:
		case <-done:
			event.ReleasePriceTick(tick)
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestReactorSettlesThroughTarget(t *testing.T) {
	intent := testIntent() // market entry, stop 0.03, target 0.04
	journal := &fakeJournal{}

	ctrl := NewController(intent, &domain.PairRules{}, nil)
	paper := execution.NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, nil)
	reactor := NewReactor(64, "ETHBTC", ctrl, paper, nil, journal, nil)
	paper.SetInbox(reactor.Inbox())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fillsBefore := infra.GlobalMetrics.Snapshot().OrdersFilled

	done := make(chan struct{})
	defer close(done)
	// Price sits at the target: the stop gets cancelled, the target
	// placed and filled.
	go pumpPrice(done, paper, reactor.Inbox(), dec("0.04"))

	out, err := reactor.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != OutcomeSettled {
		t.Errorf("expected settled, got %s", out)
	}
	if journal.recordedOutcome() != "SETTLED" {
		t.Errorf("journal outcome: expected SETTLED, got %q", journal.recordedOutcome())
	}
	if paper.RestingCount() != 0 {
		t.Errorf("expected no resting orders, got %d", paper.RestingCount())
	}
	// Two fills: the market entry and the target.
	if fills := infra.GlobalMetrics.Snapshot().OrdersFilled - fillsBefore; fills != 2 {
		t.Errorf("expected 2 recorded fills, got %d", fills)
	}
}

func TestReactorSettlesThroughStop(t *testing.T) {
	intent := testIntent()
	ctrl := NewController(intent, &domain.PairRules{}, nil)
	paper := execution.NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.035"), domain.FeeAssetBNB, nil)
	reactor := NewReactor(64, "ETHBTC", ctrl, paper, nil, nil, nil)
	paper.SetInbox(reactor.Inbox())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	// Price collapses straight to the stop level.
	go pumpPrice(done, paper, reactor.Inbox(), dec("0.03"))

	out, err := reactor.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != OutcomeSettled {
		t.Errorf("expected settled, got %s", out)
	}
}

func TestReactorCancelsEntryAtCancelPrice(t *testing.T) {
	intent := testIntent()
	intent.BuyPrice = decPtr("0.05") // breakout entry above market
	intent.CancelPrice = decPtr("0.032")
	journal := &fakeJournal{}

	ctrl := NewController(intent, &domain.PairRules{}, nil)
	paper := execution.NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.04"), domain.FeeAssetBNB, nil)
	reactor := NewReactor(64, "ETHBTC", ctrl, paper, nil, journal, nil)
	paper.SetInbox(reactor.Inbox())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	// Price falls through the cancel level before the entry triggers.
	go pumpPrice(done, paper, reactor.Inbox(), dec("0.03"))

	out, err := reactor.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != OutcomeCancelled {
		t.Errorf("expected cancelled, got %s", out)
	}
	if journal.recordedOutcome() != "CANCELLED" {
		t.Errorf("journal outcome: expected CANCELLED, got %q", journal.recordedOutcome())
	}
}

func TestReactorFailsOnPlacementError(t *testing.T) {
	intent := testIntent()
	journal := &fakeJournal{}

	ctrl := NewController(intent, &domain.PairRules{}, nil)
	reactor := NewReactor(64, "ETHBTC", ctrl, failingExchange{}, nil, journal, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errorsBefore := infra.GlobalMetrics.Snapshot().ErrorsTotal

	out, err := reactor.Run(ctx)
	if err == nil {
		t.Fatal("expected placement error")
	}
	var pe *domain.PlacementError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PlacementError, got %T", err)
	}
	if out != OutcomeFailed {
		t.Errorf("expected failed, got %s", out)
	}
	if journal.recordedOutcome() != "FAILED" {
		t.Errorf("journal outcome: expected FAILED, got %q", journal.recordedOutcome())
	}
	if errs := infra.GlobalMetrics.Snapshot().ErrorsTotal - errorsBefore; errs != 1 {
		t.Errorf("expected 1 recorded error, got %d", errs)
	}
}

func TestReactorStopsOnContextCancel(t *testing.T) {
	intent := testIntent()
	intent.BuyPrice = decPtr("0.05")

	ctrl := NewController(intent, &domain.PairRules{}, nil)
	paper := execution.NewPaperExchange("ETHBTC", &domain.PairRules{}, dec("0.04"), domain.FeeAssetBNB, nil)
	reactor := NewReactor(64, "ETHBTC", ctrl, paper, nil, nil, nil)
	paper.SetInbox(reactor.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := reactor.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
