package engine

import (
	"log/slog"

	"ocobot/internal/domain"
	"ocobot/internal/event"
	"ocobot/internal/notify"

	"github.com/shopspring/decimal"
)

// Outcome is the terminal result of a trade. What the host process does
// with it (exit code, restart, log) is the caller's concern.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSettled
	OutcomeCancelled
	OutcomeFailed
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "SETTLED"
	case OutcomeCancelled:
		return "CANCELLED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "NONE"
	}
}

// CommandType discriminates the outbound commands the controller emits.
type CommandType int

const (
	CmdPlaceOrder CommandType = iota + 1
	CmdCancelOrder
	CmdNotify
	CmdTerminate
)

// Command is one outbound decision of the state machine. The controller
// never talks to the exchange itself; the reactor executes commands.
type Command struct {
	Type    CommandType
	Role    domain.Role         // place, cancel
	Order   domain.OrderRequest // place
	OrderID int64               // cancel
	Note    notify.Kind         // notify
	Outcome Outcome             // terminate
}

// state holds every mutable variable of the order lifecycle. Mutated only
// by the controller's transition methods, strictly inside the reactor's
// single-threaded event path.
type state struct {
	entryOrderID  int64 // 0 = none outstanding
	stopOrderID   int64
	targetOrderID int64

	stopSellAmount   decimal.Decimal
	targetSellAmount decimal.Decimal

	// Entry style, set once at entry placement. Interprets the
	// cancel-price direction later.
	isStopEntry  bool
	isLimitEntry bool

	// Cancel guard: at most one cancellation request in flight.
	isCancelling   bool
	cancellingID   int64
	cancellingRole domain.Role

	// Set while a merged stop is being re-placed: the resting stop must
	// be cancelled before the re-derived quantity goes out.
	replacingStop bool

	feeAdjusted bool

	outcome Outcome
	done    bool
}

// Controller is the OCO order-lifecycle state machine. It decides which
// order to place next, when to cancel an outstanding one, and how to
// rebalance quantities when a scale-out or fee deduction changes the
// numbers mid-flight. It performs no blocking operations.
type Controller struct {
	intent *domain.TradeIntent
	rules  *domain.PairRules
	st     state
	logger *slog.Logger
}

// NewController builds a controller from a normalized intent.
func NewController(intent *domain.TradeIntent, rules *domain.PairRules, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		intent: intent,
		rules:  rules,
		st: state{
			stopSellAmount:   intent.Amount,
			targetSellAmount: intent.TargetSellAmount(),
		},
		logger: logger.With("module", "controller"),
	}
}

// Outcome returns the terminal outcome once the trade is done.
func (c *Controller) Outcome() (Outcome, bool) {
	return c.st.outcome, c.st.done
}

// NeedsPriceSnapshot reports whether the entry decision requires a
// current-price snapshot (only a non-market entry does).
func (c *Controller) NeedsPriceSnapshot() bool {
	return c.intent.BuyPrice != nil && c.intent.BuyPrice.IsPositive()
}

// Start makes the entry decision against a single current-price snapshot
// and emits the first placement. With no entry requested the position is
// assumed already held and sell-side placement starts immediately.
func (c *Controller) Start(currentPrice decimal.Decimal) []Command {
	if c.intent.BuyPrice == nil {
		return c.placeSellOrder()
	}

	buyPrice := *c.intent.BuyPrice
	req := domain.OrderRequest{
		Symbol:   c.intent.Pair,
		Side:     domain.SideBuy,
		Quantity: c.intent.Amount,
	}

	switch {
	case buyPrice.IsZero():
		req.Type = domain.OrderTypeMarket
	case buyPrice.GreaterThan(currentPrice):
		// Breakout entry: trigger above market, buy once it crosses.
		c.st.isStopEntry = true
		req.Type = domain.OrderTypeStopLossLimit
		req.StopPrice = buyPrice
		req.Price = c.intent.EffectiveBuyLimit()
	default:
		// Buy the dip: resting limit below market.
		c.st.isLimitEntry = true
		req.Type = domain.OrderTypeLimit
		req.Price = buyPrice
	}

	c.logger.Info("entry decision",
		slog.String("type", req.Type),
		slog.String("buy_price", buyPrice.String()),
		slog.String("market_price", currentPrice.String()))

	return []Command{{Type: CmdPlaceOrder, Role: domain.RoleEntry, Order: req}}
}

// OnPlaceResult records the exchange's response to a placement command.
// A placement failure is fatal to the whole trade.
func (c *Controller) OnPlaceResult(role domain.Role, res *domain.OrderResult, err error) ([]Command, error) {
	if err != nil {
		return nil, &domain.PlacementError{Role: role, Err: err}
	}

	c.logger.Info("order placed",
		slog.String("role", role.String()),
		slog.Int64("order_id", res.OrderID),
		slog.String("status", res.Status))

	switch role {
	case domain.RoleEntry:
		c.st.entryOrderID = res.OrderID
		// Market entries can come back already filled.
		if res.Status == domain.OrderStatusFilled {
			return c.handleEntryFill(res.FeeAsset()), nil
		}
	case domain.RoleStop:
		c.st.stopOrderID = res.OrderID
	case domain.RoleTarget:
		c.st.targetOrderID = res.OrderID
		// Scale-out: the stop keeps protecting only the remainder, so the
		// stop quantity is re-derived and the order re-placed.
		if c.intent.StopPrice != nil && !c.st.stopSellAmount.Equal(c.st.targetSellAmount) {
			c.st.stopSellAmount = c.st.stopSellAmount.Sub(c.st.targetSellAmount)
			return []Command{c.placeStopCommand()}, nil
		}
	}
	return nil, nil
}

// OnPriceTick evaluates the two cancellation trigger families against one
// price tick. Ticks arriving while a cancel is in flight are ignored for
// that decision, not queued.
func (c *Controller) OnPriceTick(price decimal.Decimal) []Command {
	if c.st.done || c.st.isCancelling {
		return nil
	}

	// Pre-fill: abandon the entry when price crosses back over the
	// cancel level. Direction inverts between the two entry styles.
	if c.st.entryOrderID != 0 {
		if c.intent.CancelPrice == nil {
			return nil
		}
		cancelPrice := *c.intent.CancelPrice
		breached := (c.st.isStopEntry && price.LessThanOrEqual(cancelPrice)) ||
			(c.st.isLimitEntry && price.GreaterThanOrEqual(cancelPrice))
		if breached {
			return c.cancel(domain.RoleEntry, c.st.entryOrderID)
		}
		return nil
	}

	// A stop replacement whose cancel failed has no price trigger of
	// its own; retry it before anything else.
	if c.st.replacingStop && c.st.stopOrderID != 0 {
		return c.cancel(domain.RoleStop, c.st.stopOrderID)
	}

	// Post-fill: the stop/target mutual-cancel race. At most one
	// direction fires per tick; between the two levels is the steady
	// no-action zone.
	if c.st.stopOrderID != 0 && c.intent.TargetPrice != nil && price.GreaterThanOrEqual(*c.intent.TargetPrice) {
		return c.cancel(domain.RoleStop, c.st.stopOrderID)
	}
	if c.st.targetOrderID != 0 && c.intent.StopPrice != nil && price.LessThanOrEqual(*c.intent.StopPrice) {
		return c.cancel(domain.RoleTarget, c.st.targetOrderID)
	}
	return nil
}

// OnOrderUpdate routes an execution report to the owning role's handler.
// Only a full fill transitions state; a terminal non-fill status outside a
// requested cancellation is fatal.
func (c *Controller) OnOrderUpdate(u *event.OrderUpdate) ([]Command, error) {
	if c.st.done {
		return nil, nil
	}

	role, ok := c.roleOf(u.OrderID)
	if !ok {
		return nil, nil
	}

	switch u.Status {
	case domain.OrderStatusFilled:
		switch role {
		case domain.RoleEntry:
			return c.handleEntryFill(u.FeeAsset), nil
		case domain.RoleStop:
			return c.settle(notify.KindStopHit), nil
		case domain.RoleTarget:
			return c.settle(notify.KindTargetHit), nil
		}
	case domain.OrderStatusCanceled:
		if c.st.isCancelling && c.st.cancellingID == u.OrderID {
			// Our own cancellation echoing back; the cancel response
			// drives the transition.
			return nil, nil
		}
		return nil, &domain.UnexpectedStatusError{Role: role, OrderID: u.OrderID, Status: u.Status, Reason: u.RejectReason}
	case domain.OrderStatusRejected, domain.OrderStatusExpired:
		return nil, &domain.UnexpectedStatusError{Role: role, OrderID: u.OrderID, Status: u.Status, Reason: u.RejectReason}
	}

	// NEW and PARTIALLY_FILLED are not actionable.
	return nil, nil
}

// OnCancelResult clears the cancel guard and, on success, runs the
// transition the cancellation was issued for. A cancel failure is
// non-fatal: the trigger re-evaluates on the next matching tick.
func (c *Controller) OnCancelResult(orderID int64, err error) []Command {
	if !c.st.isCancelling || c.st.cancellingID != orderID {
		return nil
	}

	role := c.st.cancellingRole
	c.st.isCancelling = false
	c.st.cancellingID = 0
	c.st.cancellingRole = 0

	if err != nil {
		// replacingStop stays set: a pending stop replacement has no
		// price trigger left (the target is already gone), so the next
		// tick re-issues the cancel instead.
		c.logger.Warn("cancel failed, trigger will re-evaluate",
			slog.String("role", role.String()),
			slog.Int64("order_id", orderID),
			slog.Any("error", err))
		return nil
	}

	switch role {
	case domain.RoleEntry:
		c.st.entryOrderID = 0
		c.st.done = true
		c.st.outcome = OutcomeCancelled
		return []Command{
			{Type: CmdNotify, Note: notify.KindCancelled},
			{Type: CmdTerminate, Outcome: OutcomeCancelled},
		}

	case domain.RoleStop:
		c.st.stopOrderID = 0
		if c.st.replacingStop {
			c.st.replacingStop = false
			return []Command{c.placeStopCommand()}
		}
		if c.st.targetOrderID == 0 {
			return c.placeTargetLeg()
		}
		// Scale-out pair: the target leg already rests, nothing to place.
		return nil

	case domain.RoleTarget:
		c.st.targetOrderID = 0
		// Undo a prior scale-out split: only the stop leg survives.
		if !c.st.stopSellAmount.Equal(c.st.targetSellAmount) {
			c.st.stopSellAmount = c.st.stopSellAmount.Add(c.st.targetSellAmount)
		}
		if c.st.stopOrderID != 0 {
			c.st.replacingStop = true
			return c.cancel(domain.RoleStop, c.st.stopOrderID)
		}
		return []Command{c.placeStopCommand()}
	}
	return nil
}

// handleEntryFill zeroes the entry order, applies the fee adjustment to
// both pending sell quantities exactly once, then starts the sell side.
func (c *Controller) handleEntryFill(feeAsset string) []Command {
	c.st.entryOrderID = 0

	if !c.st.feeAdjusted {
		c.st.feeAdjusted = true
		c.st.stopSellAmount = domain.AdjustForFee(feeAsset, c.st.stopSellAmount, c.intent.NonBNBFees)
		c.st.targetSellAmount = domain.AdjustForFee(feeAsset, c.st.targetSellAmount, c.intent.NonBNBFees)
		c.logger.Info("entry filled",
			slog.String("fee_asset", feeAsset),
			slog.String("stop_sell_amount", c.st.stopSellAmount.String()),
			slog.String("target_sell_amount", c.st.targetSellAmount.String()))
	}

	cmds := []Command{{Type: CmdNotify, Note: notify.KindEntered}}
	return append(cmds, c.placeSellOrder()...)
}

// placeSellOrder starts the protection side: the stop leg when a stop
// price is set, else the target leg, else the trade is a plain entry and
// settles immediately.
func (c *Controller) placeSellOrder() []Command {
	if c.intent.StopPrice != nil {
		return []Command{c.placeStopCommand()}
	}
	if c.intent.TargetPrice != nil {
		return c.placeTargetLeg()
	}
	c.st.done = true
	c.st.outcome = OutcomeSettled
	return []Command{{Type: CmdTerminate, Outcome: OutcomeSettled}}
}

func (c *Controller) placeStopCommand() Command {
	return Command{
		Type: CmdPlaceOrder,
		Role: domain.RoleStop,
		Order: domain.OrderRequest{
			Symbol:    c.intent.Pair,
			Side:      domain.SideSell,
			Type:      domain.OrderTypeStopLossLimit,
			Quantity:  c.st.stopSellAmount,
			Price:     c.intent.EffectiveStopLimit(),
			StopPrice: *c.intent.StopPrice,
		},
	}
}

func (c *Controller) placeTargetLeg() []Command {
	if c.intent.TargetPrice == nil {
		return nil
	}
	return []Command{{
		Type: CmdPlaceOrder,
		Role: domain.RoleTarget,
		Order: domain.OrderRequest{
			Symbol:   c.intent.Pair,
			Side:     domain.SideSell,
			Type:     domain.OrderTypeLimit,
			Quantity: c.st.targetSellAmount,
			Price:    *c.intent.TargetPrice,
		},
	}}
}

func (c *Controller) settle(note notify.Kind) []Command {
	c.st.done = true
	c.st.outcome = OutcomeSettled
	return []Command{
		{Type: CmdNotify, Note: note},
		{Type: CmdTerminate, Outcome: OutcomeSettled},
	}
}

func (c *Controller) cancel(role domain.Role, orderID int64) []Command {
	c.st.isCancelling = true
	c.st.cancellingID = orderID
	c.st.cancellingRole = role
	return []Command{{Type: CmdCancelOrder, Role: role, OrderID: orderID}}
}

func (c *Controller) roleOf(orderID int64) (domain.Role, bool) {
	switch {
	case orderID == 0:
		return 0, false
	case orderID == c.st.entryOrderID:
		return domain.RoleEntry, true
	case orderID == c.st.stopOrderID:
		return domain.RoleStop, true
	case orderID == c.st.targetOrderID:
		return domain.RoleTarget, true
	default:
		return 0, false
	}
}
