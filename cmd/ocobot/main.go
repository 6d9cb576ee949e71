package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ocobot/internal/app"
	"ocobot/internal/domain"
	"ocobot/internal/engine"
	"ocobot/internal/event"
	"ocobot/internal/execution"
	"ocobot/internal/infra"
	"ocobot/internal/infra/binance"

	"github.com/shopspring/decimal"
)

type cliFlags struct {
	pair        string
	amount      string
	quoteAmount string
	buyPrice    string
	buyLimit    string
	stopPrice   string
	stopLimit   string
	targetPrice string
	scaleOut    string
	cancelPrice string
	nonBNBFees  bool
	dryRun      bool
	configPath  string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.pair, "pair", "", "trading pair symbol, e.g. ETHBTC (required)")
	flag.StringVar(&f.amount, "amount", "", "base asset amount to trade")
	flag.StringVar(&f.quoteAmount, "quote-amount", "", "quote asset amount to spend (requires -buy-price)")
	flag.StringVar(&f.buyPrice, "buy-price", "", "entry price; 0 for a market buy, omit to skip the entry")
	flag.StringVar(&f.buyLimit, "buy-limit", "", "limit price for a stop-entry buy (defaults to -buy-price)")
	flag.StringVar(&f.stopPrice, "stop-price", "", "stop-loss trigger price")
	flag.StringVar(&f.stopLimit, "stop-limit", "", "stop-loss limit price (defaults to -stop-price)")
	flag.StringVar(&f.targetPrice, "target-price", "", "profit target price")
	flag.StringVar(&f.scaleOut, "scale-out", "", "amount sold at the target; the rest keeps the stop")
	flag.StringVar(&f.cancelPrice, "cancel-price", "", "cancel an unfilled entry when the price crosses this")
	flag.BoolVar(&f.nonBNBFees, "non-bnb-fees", false, "account does not pay fees in BNB")
	flag.BoolVar(&f.dryRun, "dry-run", false, "simulate order execution against the live price feed")
	flag.StringVar(&f.configPath, "config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()
	return f
}

// parseDecimal treats an empty string as absent, not zero. Several
// flags distinguish the two (a zero buy price means a market entry).
func parseDecimal(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid -%s %q: %w", name, value, err)
	}
	return &d, nil
}

func buildIntent(f *cliFlags) (*domain.TradeIntent, error) {
	if f.pair == "" {
		return nil, fmt.Errorf("-pair is required")
	}
	if f.amount == "" && f.quoteAmount == "" {
		return nil, fmt.Errorf("one of -amount or -quote-amount is required")
	}
	if f.stopPrice == "" && f.targetPrice == "" {
		return nil, fmt.Errorf("at least one of -stop-price or -target-price is required")
	}

	intent := &domain.TradeIntent{
		Pair:       f.pair,
		NonBNBFees: f.nonBNBFees,
	}

	if f.amount != "" {
		a, err := decimal.NewFromString(f.amount)
		if err != nil {
			return nil, fmt.Errorf("invalid -amount %q: %w", f.amount, err)
		}
		intent.Amount = a
	}

	var err error
	if intent.QuoteAmount, err = parseDecimal("quote-amount", f.quoteAmount); err != nil {
		return nil, err
	}
	if intent.BuyPrice, err = parseDecimal("buy-price", f.buyPrice); err != nil {
		return nil, err
	}
	if intent.BuyLimitPrice, err = parseDecimal("buy-limit", f.buyLimit); err != nil {
		return nil, err
	}
	if intent.StopPrice, err = parseDecimal("stop-price", f.stopPrice); err != nil {
		return nil, err
	}
	if intent.StopLimitPrice, err = parseDecimal("stop-limit", f.stopLimit); err != nil {
		return nil, err
	}
	if intent.TargetPrice, err = parseDecimal("target-price", f.targetPrice); err != nil {
		return nil, err
	}
	if intent.ScaleOutAmount, err = parseDecimal("scale-out", f.scaleOut); err != nil {
		return nil, err
	}
	if intent.CancelPrice, err = parseDecimal("cancel-price", f.cancelPrice); err != nil {
		return nil, err
	}
	return intent, nil
}

func main() {
	flags := parseFlags()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(flags.configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	intent, err := buildIntent(flags)
	if err != nil {
		slog.Error("❌ Invalid trade parameters", slog.Any("error", err))
		flag.Usage()
		os.Exit(1)
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Pair rules and parameter conformance
	client := binance.NewClient(bootstrap.Config)
	rules, err := client.PairRules(ctx, intent.Pair)
	if err != nil {
		slog.Error("❌ Failed to fetch pair rules", slog.String("pair", intent.Pair), slog.Any("error", err))
		os.Exit(1)
	}
	if err := intent.Normalize(rules); err != nil {
		slog.Error("❌ Trade parameters rejected", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Parameters normalized",
		slog.String("pair", intent.Pair),
		slog.String("amount", intent.Amount.String()))

	// 4. Trade journal
	if err := bootstrap.OpenJournal(intent.Pair, intent.Amount.String()); err != nil {
		slog.Error("❌ Failed to open trade journal", slog.Any("error", err))
		os.Exit(1)
	}

	// 5. Controller and reactor wiring
	notifier := bootstrap.BuildNotifier()
	ctrl := engine.NewController(intent, rules, slog.Default())

	var exch domain.Exchange = client
	var paper *execution.PaperExchange
	if flags.dryRun {
		startPrice, err := client.CurrentPrice(ctx, intent.Pair)
		if err != nil {
			slog.Error("❌ Failed to fetch start price", slog.Any("error", err))
			os.Exit(1)
		}
		paper = execution.NewPaperExchange(intent.Pair, rules, startPrice, domain.FeeAssetBNB, nil)
		exch = paper
		slog.Info("🧪 Dry run: orders are simulated", slog.String("start_price", startPrice.String()))
	}

	reactor := engine.NewReactor(1024, intent.Pair, ctrl, exch, notifier, bootstrap.Journal, slog.Default())

	// 6. Stream workers
	wsURL := bootstrap.Config.API.Binance.WSURL
	if flags.dryRun {
		// The public price stream drives both the paper fills and the
		// controller; the pump tees each tick.
		pump := make(chan event.Event, 1024)
		paper.SetInbox(reactor.Inbox())
		tradeWorker := binance.NewTradeWorker(wsURL, intent.Pair, pump)
		if err := tradeWorker.Connect(ctx); err != nil {
			slog.Error("❌ Failed to start price stream", slog.Any("error", err))
			os.Exit(1)
		}
		defer tradeWorker.Disconnect()
		go runTickPump(ctx, pump, paper, reactor.Inbox())
	} else {
		tradeWorker := binance.NewTradeWorker(wsURL, intent.Pair, reactor.Inbox())
		if err := tradeWorker.Connect(ctx); err != nil {
			slog.Error("❌ Failed to start price stream", slog.Any("error", err))
			os.Exit(1)
		}
		defer tradeWorker.Disconnect()

		userWorker := binance.NewUserWorker(wsURL, intent.Pair, client, reactor.Inbox())
		if err := userWorker.Connect(ctx); err != nil {
			slog.Error("❌ Failed to start user stream", slog.Any("error", err))
			os.Exit(1)
		}
		defer userWorker.Disconnect()
	}

	slog.Info("✨ ocobot running. Press Ctrl+C to exit.")

	// 7. Run the trade to its terminal outcome
	outcome, err := reactor.Run(ctx)
	stop()

	snap := infra.GlobalMetrics.Snapshot()
	slog.Info("📊 Run metrics",
		slog.Uint64("ticks", snap.TicksProcessed),
		slog.Uint64("orders_placed", snap.OrdersPlaced),
		slog.Uint64("cancels_issued", snap.CancelsIssued),
		slog.Uint64("errors", snap.ErrorsTotal))

	if err != nil {
		slog.Error("❌ Trade failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("👋 Trade finished", slog.String("outcome", outcome.String()))
	if outcome == engine.OutcomeFailed {
		os.Exit(1)
	}
}

// runTickPump forwards price ticks to the reactor after letting the
// paper exchange match against them. Paper fills must reach the inbox
// before the tick that caused them is processed.
func runTickPump(ctx context.Context, pump <-chan event.Event, paper *execution.PaperExchange, inbox chan<- event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-pump:
			tick, ok := ev.(*event.PriceTick)
			if !ok {
				continue
			}
			paper.OnPrice(ctx, tick.Price)
			select {
			case inbox <- tick:
			case <-ctx.Done():
				event.ReleasePriceTick(tick)
				return
			}
		}
	}
}
