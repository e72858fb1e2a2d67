package pipeline

import (
	"errors"
	"testing"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/store"
)

type brokenKV struct{}

func (brokenKV) Get(string) ([]byte, bool, error) { return nil, false, errors.New("io error") }
func (brokenKV) Put(string, []byte) error         { return errors.New("io error") }
func (brokenKV) Delete(string) error              { return errors.New("io error") }

func TestDispatcher_StorePrecedesPublish(t *testing.T) {
	actions := store.NewActionStore(store.NewMemoryKV(), "test")
	dispatcher := NewDispatcher(host.NewLoopback(), actions)

	var taken *store.ActionRecord
	remove, err := dispatcher.Install(func(ev bus.Event) {
		// By the time the event is published the record must already be
		// durable and takeable.
		if rec, ok := actions.Take(ev.WidgetID); ok {
			taken = &rec
		}
	})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	defer remove()

	dispatcher.Dispatch(bus.Event{WidgetID: "counter", ActionName: "increment", ComponentID: "btn+", Timestamp: 1000})

	if taken == nil {
		t.Fatal("Expected the record to be takeable during publish")
	}
	if taken.ActionName != "increment" || taken.ComponentID != "btn+" || taken.Timestamp != 1000 {
		t.Errorf("Unexpected record: %+v", taken)
	}
}

func TestDispatcher_StorageFailureStillPublishes(t *testing.T) {
	actions := store.NewActionStore(brokenKV{}, "test")
	dispatcher := NewDispatcher(host.NewLoopback(), actions)

	published := false
	remove, _ := dispatcher.Install(func(ev bus.Event) { published = true })
	defer remove()

	dispatcher.Dispatch(bus.Event{WidgetID: "counter", ActionName: "increment", Timestamp: 1000})

	if !published {
		t.Error("Expected publish despite storage failure")
	}
}

func TestDispatcher_BridgeEventsFlowThrough(t *testing.T) {
	loopback := host.NewLoopback()
	actions := store.NewActionStore(store.NewMemoryKV(), "test")
	dispatcher := NewDispatcher(loopback, actions)

	var got []bus.Event
	remove, _ := dispatcher.Install(func(ev bus.Event) { got = append(got, ev) })

	loopback.InjectAction(bus.Event{WidgetID: "counter", ActionName: "increment", ComponentID: "btn+", Timestamp: 1000})

	if len(got) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(got))
	}

	remove()
	loopback.InjectAction(bus.Event{WidgetID: "counter", ActionName: "increment", Timestamp: 2000})
	if len(got) != 1 {
		t.Error("Expected no delivery after teardown")
	}
}

func TestNormalize_ActionNameFallbacks(t *testing.T) {
	ev := Normalize(bus.Event{WidgetID: "w", ActionName: "tap", ComponentID: "c1", Timestamp: 1})
	if ev.ActionName != "tap" {
		t.Errorf("Expected explicit name to win, got %q", ev.ActionName)
	}

	ev = Normalize(bus.Event{WidgetID: "w", ComponentID: "c1", Timestamp: 1})
	if ev.ActionName != "c1" {
		t.Errorf("Expected component id fallback, got %q", ev.ActionName)
	}

	ev = Normalize(bus.Event{WidgetID: "w", Timestamp: 1})
	if ev.ActionName != "unknown" {
		t.Errorf("Expected unknown fallback, got %q", ev.ActionName)
	}

	if ev.Type != bus.EventType {
		t.Errorf("Expected type %s, got %s", bus.EventType, ev.Type)
	}

	ev = Normalize(bus.Event{WidgetID: "w", ActionName: "tap"})
	if ev.Timestamp == 0 {
		t.Error("Expected a defaulted timestamp")
	}
}
