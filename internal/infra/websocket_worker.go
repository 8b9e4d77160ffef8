package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/infra/metrics"
)

// StreamHandler defines channel-specific logic for the WSWorker.
type StreamHandler interface {
	GetURL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	// OnDisconnect observes a drop (or failed connect) before the
	// worker schedules its reconnect.
	OnDisconnect(ctx context.Context, err error)
	ID() string
}

// WSWorker manages the lifecycle of one logical stream channel:
// connect, read, and reconnect with randomized exponential backoff.
// Each channel gets its own worker; backoff state is per-channel and a
// drop on one never touches another's state machine.
type WSWorker struct {
	handler StreamHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout time.Duration
}

// NewWSWorker creates a worker for one stream channel.
func NewWSWorker(handler StreamHandler) *WSWorker {
	return &WSWorker{
		handler:     handler,
		ReadTimeout: 60 * time.Second,
	}
}

// Start initiates the connection loop.
func (w *WSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker.
func (w *WSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
}

func (w *WSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			w.handler.OnDisconnect(ctx, err)
			metrics.WSReconnectsTotal.WithLabelValues(w.handler.ID()).Inc()
			delay := ReconnectBackoff(attempt)
			attempt++
			slog.Warn("ws connect failed",
				slog.String("channel", w.handler.ID()),
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", delay),
				slog.Any("error", err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		attempt = 0 // reset on successful connect
		w.readLoop(ctx)
	}
}

func (w *WSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.handler.GetURL(), nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("on-connect failed: %w", err)
	}

	slog.Info("ws connected", slog.String("channel", w.handler.ID()))
	return nil
}

func (w *WSWorker) readLoop(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			slog.Warn("ws read error", slog.String("channel", w.handler.ID()), slog.Any("error", err))
			w.close()
			w.handler.OnDisconnect(ctx, fmt.Errorf("%w: %v", domain.ErrTransportClosed, err))
			metrics.WSReconnectsTotal.WithLabelValues(w.handler.ID()).Inc()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

// Write sends a message on the current connection, serialized so
// concurrent callers never interleave frames.
func (w *WSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("ws not connected")
	}

	return c.WriteMessage(msgType, data)
}

func (w *WSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
