package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/store"
)

// Dispatcher sits between the native bridge and the event bus. For every
// incoming interaction it persists the action record first and publishes
// second, so a consumer reacting to the event can always take a consistent
// record. A storage failure is logged and the publish still happens; a
// storage hiccup must not swallow the refresh the user asked for.
//
// Dispatcher implements bus.Source: the bus installs its one listener
// through it, which registers the single native listener on the bridge.
type Dispatcher struct {
	bridge host.Bridge
	store  *store.ActionStore

	mu      sync.Mutex
	forward func(bus.Event)
}

func NewDispatcher(bridge host.Bridge, actions *store.ActionStore) *Dispatcher {
	return &Dispatcher{bridge: bridge, store: actions}
}

// Install registers the bus's handler and hooks the bridge's native event
// stream. The returned teardown detaches both.
func (d *Dispatcher) Install(handler func(bus.Event)) (func(), error) {
	d.mu.Lock()
	d.forward = handler
	d.mu.Unlock()

	d.bridge.OnAction(d.Dispatch)
	return func() {
		d.bridge.OnAction(nil)
		d.mu.Lock()
		d.forward = nil
		d.mu.Unlock()
	}, nil
}

// Dispatch runs one interaction through the pipeline: normalize, persist,
// publish. Also the entry point for synthetic events from tooling.
func (d *Dispatcher) Dispatch(ev bus.Event) {
	ev = Normalize(ev)

	if ok := d.store.Store(ev.WidgetID, ev.ActionName, ev.ComponentID, ev.Timestamp); !ok {
		slog.Warn("Action record not persisted, continuing with dispatch", "widgetId", ev.WidgetID, "actionName", ev.ActionName)
	}

	d.mu.Lock()
	forward := d.forward
	d.mu.Unlock()
	if forward != nil {
		forward(ev)
	}
}

// Normalize fills the event's defaulted fields: type tag, the action name
// fallback chain (actionName, then component id, then "unknown") and a
// current timestamp when the host supplied none.
func Normalize(ev bus.Event) bus.Event {
	ev.Type = bus.EventType
	if ev.ActionName == "" {
		if ev.ComponentID != "" {
			ev.ActionName = ev.ComponentID
		} else {
			ev.ActionName = "unknown"
		}
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	return ev
}
