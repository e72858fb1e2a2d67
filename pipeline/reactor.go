package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/proto"
)

// Handler reacts to one interaction. Returning a payload pushes it to the
// host immediately; returning nil performs no update.
type Handler func(bus.Event) (*proto.Payload, error)

// Reactor ties bus subscriptions to the update pipeline: when an event for a
// bound widget arrives, the current handler runs and any payload it yields
// goes straight through the updater.
type Reactor struct {
	bus     *bus.Bus
	updater *Updater
}

func NewReactor(b *bus.Bus, updater *Updater) *Reactor {
	return &Reactor{bus: b, updater: updater}
}

// Binding is one widget's live handler registration. The handler sits
// behind an atomic so SetHandler swaps it without touching the
// subscription; only a widget id change warrants resubscribing (by
// unbinding and binding anew).
type Binding struct {
	reactor  *Reactor
	widgetID string
	handler  atomic.Value
	sub      *bus.Sub
	once     sync.Once
}

// noopHandler stands in for a nil handler so the dispatch path never
// invokes a nil function.
func noopHandler(bus.Event) (*proto.Payload, error) {
	return nil, nil
}

// Bind subscribes handler to widgetID's events. A nil handler binds as a
// logged no-op.
func (r *Reactor) Bind(widgetID string, handler Handler) *Binding {
	if handler == nil {
		slog.Warn("Binding nil widget action handler, events will be ignored", "widgetId", widgetID)
		handler = noopHandler
	}
	b := &Binding{reactor: r, widgetID: widgetID}
	b.handler.Store(handler)
	b.sub = r.bus.Subscribe(widgetID, b.react)
	return b
}

// SetHandler replaces the handler in place. The dispatch path always reads
// the latest handler, so no resubscription happens. A nil handler mutes the
// binding without removing the subscription.
func (b *Binding) SetHandler(handler Handler) {
	if handler == nil {
		slog.Warn("Replacing widget action handler with nil, events will be ignored", "widgetId", b.widgetID)
		handler = noopHandler
	}
	b.handler.Store(handler)
}

// Unbind removes the subscription. Idempotent.
func (b *Binding) Unbind() {
	b.once.Do(func() {
		b.sub.Remove()
	})
}

func (b *Binding) react(ev bus.Event) {
	handler := b.handler.Load().(Handler)

	payload, err := handler(ev)
	if err != nil {
		slog.Error("Widget action handler failed", "widgetId", b.widgetID, "actionName", ev.ActionName, "error", err.Error())
		return
	}
	if payload == nil {
		return
	}

	result := b.reactor.updater.Update(context.Background(), b.widgetID, payload)
	if !result.Success {
		slog.Error("Widget update after action failed", "widgetId", b.widgetID, "actionName", ev.ActionName, "error", result.Err.Error())
	}
}
