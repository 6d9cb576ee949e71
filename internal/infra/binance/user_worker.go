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

// UserWorker consumes the user-data stream (execution reports) and feeds
// order updates into the reactor inbox. Unlike price ticks, an execution
// report must never be dropped; the send blocks until the reactor takes it.
type UserWorker struct {
	symbol    string
	wsBaseURL string
	client    *Client
	inbox     chan<- event.Event
	conn      *websocket.Conn
	mu        sync.RWMutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewUserWorker factory
func NewUserWorker(wsBaseURL, symbol string, client *Client, inbox chan<- event.Event) *UserWorker {
	return &UserWorker{
		symbol:    strings.ToUpper(symbol),
		wsBaseURL: wsBaseURL,
		client:    client,
		inbox:     inbox,
	}
}

func (w *UserWorker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *UserWorker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("user stream connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			delay := infra.CalculateBackoff(retryCount)
			time.Sleep(delay)
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *UserWorker) connect(ctx context.Context) error {
	// Each (re)connect opens a fresh stream; an expired listen key is
	// useless after a disconnect anyway.
	listenKey, err := w.client.CreateListenKey(ctx)
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsBaseURL+"/ws/"+listenKey, nil)
	if err != nil {
		return err
	}

	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	go w.keepAliveLoop(ctx, listenKey)

	infra.GlobalMetrics.IncrementConnections()
	slog.Info("user stream connected", slog.String("symbol", w.symbol))
	return nil
}

// keepAliveLoop extends the listen key's validity while connected.
func (w *UserWorker) keepAliveLoop(ctx context.Context, listenKey string) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.IsConnected() {
				return
			}
			if err := w.client.KeepAliveListenKey(ctx, listenKey); err != nil {
				slog.Warn("listen key keepalive failed", slog.Any("error", err))
			}
		}
	}
}

func (w *UserWorker) readLoop(ctx context.Context) {
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
		w.handleMessage(ctx, msg)
	}
}

func (w *UserWorker) handleMessage(ctx context.Context, msg []byte) {
	var report executionReport
	if err := json.Unmarshal(msg, &report); err != nil {
		return
	}
	if report.EventType != "executionReport" || report.Symbol != w.symbol {
		return
	}

	price, _ := decimal.NewFromString(report.LastPrice)
	qty, _ := decimal.NewFromString(report.CumQty)

	ev := event.AcquireOrderUpdate()
	ev.OrderID = report.OrderID
	ev.Symbol = report.Symbol
	ev.Side = report.Side
	ev.OrderType = report.OrderType
	ev.Status = report.Status
	ev.Price = price
	ev.Quantity = qty
	if report.CommissionAsset != nil {
		ev.FeeAsset = *report.CommissionAsset
	}
	ev.RejectReason = report.RejectReason
	ev.Ts = report.EventTime

	select {
	case w.inbox <- ev:
	case <-ctx.Done():
		event.ReleaseOrderUpdate(ev)
	}
}

func (w *UserWorker) closeConnection() {
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
func (w *UserWorker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *UserWorker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
