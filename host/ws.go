package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voltra-ui/voltra/bus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // host process connects from localhost
	},
}

// WSBridge is a Bridge implementation the native host process connects to
// over WebSocket. One host connection at a time; a newer connection replaces
// the previous one. App-to-host frames are written under a write mutex,
// host-to-app widgetAction frames are fanned to the registered action
// listener, and refresh requests are correlated with ack frames so callers
// can wait on them.
type WSBridge struct {
	Addr   string
	server *http.Server

	mu       sync.Mutex
	conn     *websocket.Conn
	onAction func(bus.Event)
	widgets  map[string]struct{}
	pending  map[string]chan AckPayload

	actions chan bus.Event
	wmu     sync.Mutex
}

func NewWSBridge(addr string) *WSBridge {
	b := &WSBridge{
		Addr:    addr,
		widgets: make(map[string]struct{}),
		pending: make(map[string]chan AckPayload),
		actions: make(chan bus.Event, 64),
	}
	go b.dispatchLoop()
	return b
}

// dispatchLoop delivers actions off the read loop, so a listener that waits
// on a host ack (a handler pushing a fresh payload) cannot deadlock the
// connection that must carry that ack.
func (b *WSBridge) dispatchLoop() {
	for ev := range b.actions {
		b.mu.Lock()
		fn := b.onAction
		b.mu.Unlock()
		if fn == nil {
			slog.Debug("Dropping widget action, no listener registered", "widgetId", ev.WidgetID)
			continue
		}
		fn(ev)
	}
}

// Handler returns the bridge's HTTP surface: the WebSocket endpoint the
// host connects to plus health and debug routes.
func (b *WSBridge) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", b.handleWebSocket)
	r.Get("/healthz", b.handleHealth)
	r.Get("/widgets", b.handleWidgets)
	return r
}

// Start binds the bridge endpoint and blocks until Shutdown.
func (b *WSBridge) Start() error {
	slog.Info("Starting widget host bridge", "addr", b.Addr)

	b.server = &http.Server{
		Addr:    b.Addr,
		Handler: b.Handler(),
	}

	err := b.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (b *WSBridge) Shutdown() error {
	slog.Info("Shutting down widget host bridge", "addr", b.Addr)
	if b.server != nil {
		return b.server.Close()
	}
	return nil
}

func (b *WSBridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	connected := b.conn != nil
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "hostConnected": connected})
}

func (b *WSBridge) handleWidgets(w http.ResponseWriter, r *http.Request) {
	widgets, _ := b.ActiveWidgets(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(WidgetsPayload{WidgetIDs: widgets})
}

func (b *WSBridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade host connection", "error", err)
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		slog.Warn("Replacing existing host connection", "remote_addr", r.RemoteAddr)
		b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()

	slog.Info("Native host connected", "addr", r.RemoteAddr)
	go b.readLoop(conn, r.RemoteAddr)
}

func (b *WSBridge) readLoop(conn *websocket.Conn, remoteAddr string) {
	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		conn.Close()
		slog.Info("Native host disconnected", "addr", remoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Host connection error", "addr", remoteAddr, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("Invalid frame from host", "error", err, "data", string(data))
			continue
		}
		b.handleFrame(frame)
	}
}

func (b *WSBridge) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameWidgetAction:
		var action ActionFrame
		if err := json.Unmarshal(frame.Payload, &action); err != nil {
			slog.Warn("Invalid widgetAction payload", "widgetId", frame.WidgetID, "error", err)
			return
		}
		ev := bus.Event{
			Type:        bus.EventType,
			WidgetID:    frame.WidgetID,
			ActionName:  action.ActionName,
			ComponentID: action.ComponentID,
			Timestamp:   action.Timestamp,
		}
		select {
		case b.actions <- ev:
		default:
			slog.Warn("Action queue full, dropping widget action", "widgetId", ev.WidgetID, "actionName", ev.ActionName)
		}

	case FrameAck:
		var ack AckPayload
		if err := json.Unmarshal(frame.Payload, &ack); err != nil {
			slog.Warn("Invalid ack payload", "ref", frame.Ref, "error", err)
			return
		}
		b.mu.Lock()
		ch, ok := b.pending[frame.Ref]
		b.mu.Unlock()
		if !ok {
			slog.Debug("Dropping ack with no waiter", "ref", frame.Ref)
			return
		}
		select {
		case ch <- ack:
		default:
		}

	case FrameActiveWidgets:
		var report WidgetsPayload
		if err := json.Unmarshal(frame.Payload, &report); err != nil {
			slog.Warn("Invalid activeWidgets payload", "error", err)
			return
		}
		b.mu.Lock()
		b.widgets = make(map[string]struct{}, len(report.WidgetIDs))
		for _, id := range report.WidgetIDs {
			b.widgets[id] = struct{}{}
		}
		b.mu.Unlock()

	default:
		slog.Warn("Unknown frame type from host", "type", frame.Type)
	}
}

func (b *WSBridge) send(frame Frame) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return ErrNoHost
	}

	frame.Timestamp = time.Now().UnixMilli()

	b.wmu.Lock()
	defer b.wmu.Unlock()
	return conn.WriteJSON(frame)
}

func (b *WSBridge) UpdateWidget(ctx context.Context, widgetID string, payload []byte) error {
	if err := b.send(Frame{Type: FrameUpdateWidget, WidgetID: widgetID, Payload: payload}); err != nil {
		return err
	}
	b.mu.Lock()
	b.widgets[widgetID] = struct{}{}
	b.mu.Unlock()
	return nil
}

// RequestRefresh sends the refresh and waits for the host's correlated ack,
// or for ctx to end. The caller owns the time bound via ctx.
func (b *WSBridge) RequestRefresh(ctx context.Context, widgetIDs ...string) error {
	payload, err := json.Marshal(RefreshPayload{WidgetIDs: widgetIDs})
	if err != nil {
		return err
	}

	ref := uuid.NewString()
	ch := make(chan AckPayload, 1)
	b.mu.Lock()
	b.pending[ref] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, ref)
		b.mu.Unlock()
	}()

	if err := b.send(Frame{Type: FrameRequestRefresh, Ref: ref, Payload: payload}); err != nil {
		return err
	}

	select {
	case ack := <-ch:
		if ack.Status != "ok" {
			return fmt.Errorf("%w: %s", ErrRefreshFailed, ack.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *WSBridge) ClearWidget(ctx context.Context, widgetID string) error {
	if err := b.send(Frame{Type: FrameClearWidget, WidgetID: widgetID}); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.widgets, widgetID)
	b.mu.Unlock()
	return nil
}

func (b *WSBridge) ClearAll(ctx context.Context) error {
	if err := b.send(Frame{Type: FrameClearAll}); err != nil {
		return err
	}
	b.mu.Lock()
	b.widgets = make(map[string]struct{})
	b.mu.Unlock()
	return nil
}

func (b *WSBridge) ActiveWidgets(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	widgets := make([]string, 0, len(b.widgets))
	for id := range b.widgets {
		widgets = append(widgets, id)
	}
	return widgets, nil
}

func (b *WSBridge) RequestPin(ctx context.Context, widgetID string, preview *PreviewDims) error {
	payload, err := json.Marshal(PinPayload{Preview: preview})
	if err != nil {
		return err
	}
	return b.send(Frame{Type: FrameRequestPin, WidgetID: widgetID, Payload: payload})
}

func (b *WSBridge) OnAction(fn func(bus.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAction = fn
}
