package bus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventType is the single native event name this bus multiplexes.
const EventType = "widgetAction"

// Event is one user interaction reported by the native host. Ephemeral: it
// lives only for the duration of dispatch, the durable trace is the action
// store's record.
type Event struct {
	Type        string `json:"type"`
	WidgetID    string `json:"widgetId"`
	ActionName  string `json:"actionName"`
	ComponentID string `json:"componentId"`
	Timestamp   int64  `json:"timestamp"`
}

// Callback receives events for one widget instance. Callbacks run on the
// dispatch goroutine, one at a time; a panicking callback is logged and does
// not starve its siblings.
type Callback func(Event)

// Source is the single underlying native event stream. Install registers the
// one listener and returns its teardown. A platform without interactive
// widget support returns ErrUnsupported.
type Source interface {
	Install(handler func(Event)) (remove func(), err error)
}

// ErrUnsupported marks a platform with no native interactive-widget support.
var ErrUnsupported = errors.New("interactive widgets are not supported on this platform")

// UnsupportedSource is the Source for such platforms.
type UnsupportedSource struct{}

func (UnsupportedSource) Install(func(Event)) (func(), error) {
	return nil, ErrUnsupported
}

// Bus fans one native event stream out to per-widget subscriber sets. The
// underlying listener is installed lazily on the first subscription of any
// kind and torn down when the last one is removed, so an application with no
// interactive widgets never holds a native listener.
type Bus struct {
	source Source

	mu     sync.Mutex
	subs   map[string]map[string]Callback // widgetID -> subID -> callback
	last   map[string]Event
	remove func()
}

func NewBus(source Source) *Bus {
	return &Bus{
		source: source,
		subs:   make(map[string]map[string]Callback),
		last:   make(map[string]Event),
	}
}

// Sub is a subscription handle. Remove is idempotent.
type Sub struct {
	bus      *Bus
	widgetID string
	id       string
	noop     bool
	once     sync.Once
}

// Subscribe registers cb for events targeting widgetID. On an unsupported
// platform the returned handle is a logged no-op.
func (b *Bus) Subscribe(widgetID string, cb Callback) *Sub {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count() == 0 {
		remove, err := b.source.Install(b.Dispatch)
		if err != nil {
			if errors.Is(err, ErrUnsupported) {
				slog.Warn("Widget actions are not supported on this platform, subscription is a no-op", "widgetId", widgetID)
			} else {
				slog.Error("Failed to install native widget action listener", "widgetId", widgetID, "error", err.Error())
			}
			return &Sub{noop: true}
		}
		b.remove = remove
	}

	id := uuid.NewString()
	if b.subs[widgetID] == nil {
		b.subs[widgetID] = make(map[string]Callback)
	}
	b.subs[widgetID][id] = cb
	slog.Debug("Subscribed to widget actions", "widgetId", widgetID, "subId", id)

	return &Sub{bus: b, widgetID: widgetID, id: id}
}

func (s *Sub) Remove() {
	if s.noop {
		return
	}
	s.once.Do(func() {
		s.bus.unsubscribe(s.widgetID, s.id)
	})
}

func (b *Bus) unsubscribe(widgetID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[widgetID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(b.subs, widgetID)
	}
	slog.Debug("Unsubscribed from widget actions", "widgetId", widgetID, "subId", id)

	if b.count() == 0 && b.remove != nil {
		b.remove()
		b.remove = nil
		slog.Debug("Tore down native widget action listener")
	}
}

func (b *Bus) count() int {
	total := 0
	for _, set := range b.subs {
		total += len(set)
	}
	return total
}

// Dispatch routes one native event to the subscribers of its widget id.
// Events for widget ids with no subscribers are dropped without error, but
// still land in the last-event slot. Subscriptions feed it automatically; a
// standalone process that installs its own source listener may call it
// directly.
func (b *Bus) Dispatch(ev Event) {
	b.mu.Lock()
	b.last[ev.WidgetID] = ev
	callbacks := make([]Callback, 0, len(b.subs[ev.WidgetID]))
	for _, cb := range b.subs[ev.WidgetID] {
		callbacks = append(callbacks, cb)
	}
	b.mu.Unlock()

	slog.Debug("Dispatching widget action",
		"widgetId", ev.WidgetID,
		"actionName", ev.ActionName,
		"componentId", ev.ComponentID,
		"subscribers", len(callbacks),
	)
	for _, cb := range callbacks {
		invoke(cb, ev)
	}
}

func invoke(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Widget action callback panicked", "widgetId", ev.WidgetID, "actionName", ev.ActionName, "panic", r)
		}
	}()
	cb(ev)
}

// LastEvent returns the most recently dispatched event for widgetID, if any.
// Diagnostic surface for tooling; not part of the durable action flow.
func (b *Bus) LastEvent(widgetID string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev, ok := b.last[widgetID]
	return ev, ok
}
