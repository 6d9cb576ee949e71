package binance

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ocobot/internal/event"
	"ocobot/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// TradeWorker consumes the public aggTrade stream for one pair and feeds
// price ticks into the reactor inbox. A tick dropped on a full inbox is
// fine; the next one carries fresher information anyway.
type TradeWorker struct {
	symbol    string
	wsBaseURL string
	inbox     chan<- event.Event
	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewTradeWorker factory
func NewTradeWorker(wsBaseURL, symbol string, inbox chan<- event.Event) *TradeWorker {
	return &TradeWorker{
		symbol:    strings.ToUpper(symbol),
		wsBaseURL: wsBaseURL,
		inbox:     inbox,
	}
}

func (w *TradeWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *TradeWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("trade stream connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0 // Infinite retry loop for a live trade
			}
			delay := infra.CalculateBackoff(retryCount)
			time.Sleep(delay)
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *TradeWorker) connect(ctx context.Context) error {
	streamURL := w.wsBaseURL + "/ws/" + strings.ToLower(w.symbol) + "@aggTrade"

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return err
	}

	// Binance pings the client; answer and extend the read deadline.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	infra.GlobalMetrics.IncrementConnections()
	slog.Info("trade stream connected", slog.String("symbol", w.symbol))
	return nil
}

func (w *TradeWorker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *TradeWorker) handleMessage(msg []byte) {
	var trade aggTradeMessage
	if err := json.Unmarshal(msg, &trade); err != nil {
		return
	}
	if trade.EventType != "aggTrade" {
		return
	}

	price, err := decimal.NewFromString(trade.Price)
	if err != nil {
		return
	}

	ev := event.AcquirePriceTick()
	ev.Symbol = trade.Symbol
	ev.Price = price
	ev.Ts = trade.TradeTime

	select {
	case w.inbox <- ev:
	default:
		event.ReleasePriceTick(ev) // Release if dropped
	}
}

func (w *TradeWorker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
		infra.GlobalMetrics.DecrementConnections()
	}
	w.connected = false
}

// IsConnected reports whether the stream is currently up.
func (w *TradeWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *TradeWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
