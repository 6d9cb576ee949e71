package engine

import (
	"context"
	"log/slog"

	"ocobot/internal/domain"
	"ocobot/internal/event"
	"ocobot/internal/infra"
	"ocobot/internal/notify"

	"github.com/shopspring/decimal"
)

// Journal records the trade's lifecycle for post-mortem inspection.
// Journal failures never affect the trade; the reactor only logs them.
type Journal interface {
	RecordOrder(role domain.Role, orderID int64, req domain.OrderRequest, status string) error
	RecordOrderStatus(orderID int64, status string) error
	RecordOutcome(outcome string) error
}

// Reactor is the single consumer of the price-tick and order-status
// streams. It runs the controller strictly single-threaded: every state
// transition happens inside its event-handling path. This MUST be run in
// a single goroutine.
type Reactor struct {
	inbox    chan event.Event
	ctrl     *Controller
	exch     domain.Exchange
	notifier notify.Notifier
	journal  Journal
	pair     string
	logger   *slog.Logger
}

// NewReactor creates a reactor for one trade.
func NewReactor(inboxSize int, pair string, ctrl *Controller, exch domain.Exchange, notifier notify.Notifier, journal Journal, logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		inbox:    make(chan event.Event, inboxSize),
		ctrl:     ctrl,
		exch:     exch,
		notifier: notifier,
		journal:  journal,
		pair:     pair,
		logger:   logger.With("module", "reactor"),
	}
}

// Inbox returns the event channel. Stream workers send events here.
func (r *Reactor) Inbox() chan<- event.Event {
	return r.inbox
}

// Run drives the trade from entry decision to terminal outcome. It
// returns when the trade settles, cancels, fails, or ctx is done.
func (r *Reactor) Run(ctx context.Context) (Outcome, error) {
	price := decimal.Zero
	if r.ctrl.NeedsPriceSnapshot() {
		p, err := r.exch.CurrentPrice(ctx, r.pair)
		if err != nil {
			return r.fail(err)
		}
		price = p
	}

	if err := r.execute(ctx, r.ctrl.Start(price)); err != nil {
		return r.fail(err)
	}
	if out, done := r.ctrl.Outcome(); done {
		return r.finish(out), nil
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reactor stopping", slog.Any("reason", ctx.Err()))
			return OutcomeNone, ctx.Err()
		case ev := <-r.inbox:
			if err := r.processEvent(ctx, ev); err != nil {
				return r.fail(err)
			}
			if out, done := r.ctrl.Outcome(); done {
				return r.finish(out), nil
			}
		}
	}
}

func (r *Reactor) processEvent(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case *event.PriceTick:
		infra.GlobalMetrics.RecordTick()
		cmds := r.ctrl.OnPriceTick(e.Price)
		event.ReleasePriceTick(e)
		return r.execute(ctx, cmds)

	case *event.OrderUpdate:
		if e.Status == domain.OrderStatusFilled {
			infra.GlobalMetrics.RecordOrderFilled()
		}
		if r.journal != nil {
			if err := r.journal.RecordOrderStatus(e.OrderID, e.Status); err != nil {
				r.logger.Warn("journal write failed", slog.Any("error", err))
			}
		}
		cmds, err := r.ctrl.OnOrderUpdate(e)
		event.ReleaseOrderUpdate(e)
		if err != nil {
			return err
		}
		return r.execute(ctx, cmds)

	case *event.CancelResult:
		if e.Err != nil {
			// Non-fatal: the triggering condition re-evaluates on the
			// next matching tick if still true.
			infra.GlobalMetrics.RecordCancelFailure()
			cerr := &domain.CancelError{OrderID: e.OrderID, Err: e.Err}
			r.logger.Warn("cancel request failed", slog.Any("error", cerr))
		}
		return r.execute(ctx, r.ctrl.OnCancelResult(e.OrderID, e.Err))

	default:
		r.logger.Warn("unknown event type", slog.Any("type", ev.Kind()))
		return nil
	}
}

// execute carries out the controller's commands. Placements run in-line
// and their result feeds straight back into the controller; cancellations
// run asynchronously and come back through the inbox, keeping a real
// in-flight window for the cancel guard.
func (r *Reactor) execute(ctx context.Context, cmds []Command) error {
	for _, cmd := range cmds {
		switch cmd.Type {
		case CmdPlaceOrder:
			res, err := r.exch.PlaceOrder(ctx, cmd.Order)
			if err == nil {
				infra.GlobalMetrics.RecordOrderPlaced()
				if res.Status == domain.OrderStatusFilled {
					infra.GlobalMetrics.RecordOrderFilled()
				}
				if r.journal != nil {
					if jerr := r.journal.RecordOrder(cmd.Role, res.OrderID, cmd.Order, res.Status); jerr != nil {
						r.logger.Warn("journal write failed", slog.Any("error", jerr))
					}
				}
			}
			more, perr := r.ctrl.OnPlaceResult(cmd.Role, res, err)
			if perr != nil {
				return perr
			}
			if err := r.execute(ctx, more); err != nil {
				return err
			}

		case CmdCancelOrder:
			infra.GlobalMetrics.RecordCancelIssued()
			go func(orderID int64) {
				err := r.exch.CancelOrder(ctx, r.pair, orderID)
				select {
				case r.inbox <- &event.CancelResult{OrderID: orderID, Err: err}:
				case <-ctx.Done():
				}
			}(cmd.OrderID)

		case CmdNotify:
			if r.notifier != nil {
				if err := r.notifier.Notify(ctx, cmd.Note, r.pair); err != nil {
					r.logger.Warn("notification failed",
						slog.String("kind", cmd.Note.String()),
						slog.Any("error", err))
				}
			}

		case CmdTerminate:
			r.logger.Info("trade terminal", slog.String("outcome", cmd.Outcome.String()))
		}
	}
	return nil
}

func (r *Reactor) finish(out Outcome) Outcome {
	if r.journal != nil {
		if err := r.journal.RecordOutcome(out.String()); err != nil {
			r.logger.Warn("journal write failed", slog.Any("error", err))
		}
	}
	return out
}

func (r *Reactor) fail(err error) (Outcome, error) {
	infra.GlobalMetrics.RecordError()
	r.logger.Error("trade failed", slog.Any("error", err))
	if r.journal != nil {
		if jerr := r.journal.RecordOutcome(OutcomeFailed.String()); jerr != nil {
			r.logger.Warn("journal write failed", slog.Any("error", jerr))
		}
	}
	return OutcomeFailed, err
}
