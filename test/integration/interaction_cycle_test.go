package integration

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voltra-ui/voltra/bus"
	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/pipeline"
	"github.com/voltra-ui/voltra/proto"
	"github.com/voltra-ui/voltra/store"
)

func counterPayload(t *testing.T, count int64) *proto.Payload {
	t.Helper()
	payload, err := proto.Render(proto.Variant{
		Width:  150,
		Height: 100,
		Root: &proto.Node{
			Kind: proto.KindContainer,
			ID:   "root",
			Children: []*proto.Node{
				{Kind: proto.KindText, ID: "label", Props: proto.Props{"text": fmt.Sprintf("%d", count)}},
				{Kind: proto.KindButton, ID: "btn+", ActionType: proto.ActionRefresh, ActionName: "increment"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return payload
}

// Full cycle over the loopback bridge: interaction -> durable record ->
// event -> handler -> new payload -> displayed state.
func TestInteractionCycle_Loopback(t *testing.T) {
	kv, err := store.OpenSQLite(filepath.Join(t.TempDir(), "actions.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer kv.Close()

	loopback := host.NewLoopback()
	actions := store.NewActionStore(kv, "integration")
	dispatcher := pipeline.NewDispatcher(loopback, actions)
	eventBus := bus.NewBus(dispatcher)
	updater := pipeline.NewUpdater(loopback).WithTimeout(2 * time.Second)
	reactor := pipeline.NewReactor(eventBus, updater)

	var count atomic.Int64
	binding := reactor.Bind("counter", func(ev bus.Event) (*proto.Payload, error) {
		if ev.ActionName == "increment" {
			count.Add(1)
		}
		return counterPayload(t, count.Load()), nil
	})
	defer binding.Unbind()

	loopback.InjectAction(bus.Event{WidgetID: "counter", ActionName: "increment", ComponentID: "btn+", Timestamp: 1000})

	if count.Load() != 1 {
		t.Fatalf("Expected handler to run once, count=%d", count.Load())
	}
	if loopback.UpdateCount() != 1 {
		t.Errorf("Expected exactly one widget update, got %d", loopback.UpdateCount())
	}

	displayed, ok := loopback.Displayed("counter")
	if !ok {
		t.Fatal("Expected displayed payload after cycle")
	}
	decoded, err := proto.Decode(displayed)
	if err != nil {
		t.Fatalf("Displayed payload does not decode: %v", err)
	}
	tree, err := decoded.Tree("150x100")
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if text := tree.Children[0].Props["text"]; text != "1" {
		t.Errorf("Expected counter text 1, got %v", text)
	}

	// The durable record was written before publish and is still takeable.
	rec, ok := actions.Take("counter")
	if !ok {
		t.Fatal("Expected a durable action record")
	}
	if rec.ActionName != "increment" || rec.ComponentID != "btn+" || rec.Timestamp != 1000 {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if _, ok := actions.Take("counter"); ok {
		t.Error("Expected one-time read semantics")
	}
}

// Full cycle over the WebSocket bridge with a scripted native host process.
func TestInteractionCycle_WSBridge(t *testing.T) {
	bridge := host.NewWSBridge("unused")
	server := httptest.NewServer(bridge.Handler())
	defer server.Close()

	actions := store.NewActionStore(store.NewMemoryKV(), "integration")
	dispatcher := pipeline.NewDispatcher(bridge, actions)
	eventBus := bus.NewBus(dispatcher)
	updater := pipeline.NewUpdater(bridge).WithTimeout(2 * time.Second)
	reactor := pipeline.NewReactor(eventBus, updater)

	binding := reactor.Bind("counter", func(ev bus.Event) (*proto.Payload, error) {
		return counterPayload(t, 1), nil
	})
	defer binding.Unbind()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Host dial failed: %v", err)
	}
	defer conn.Close()

	// Host reports a button press.
	action, _ := json.Marshal(host.ActionFrame{ActionName: "increment", ComponentID: "btn+", Timestamp: 1000})
	if err := conn.WriteJSON(host.Frame{Type: host.FrameWidgetAction, WidgetID: "counter", Payload: action}); err != nil {
		t.Fatalf("Failed to send action: %v", err)
	}

	// The app side answers with an update followed by a refresh request.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update host.Frame
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("Failed to read update frame: %v", err)
	}
	if update.Type != host.FrameUpdateWidget || update.WidgetID != "counter" {
		t.Fatalf("Expected updateWidget for counter, got %+v", update)
	}
	if _, err := proto.Decode(update.Payload); err != nil {
		t.Errorf("Update payload does not decode: %v", err)
	}

	var refresh host.Frame
	if err := conn.ReadJSON(&refresh); err != nil {
		t.Fatalf("Failed to read refresh frame: %v", err)
	}
	if refresh.Type != host.FrameRequestRefresh {
		t.Fatalf("Expected requestRefresh, got %+v", refresh)
	}
	ack, _ := json.Marshal(host.AckPayload{Status: "ok"})
	if err := conn.WriteJSON(host.Frame{Type: host.FrameAck, Ref: refresh.Ref, Payload: ack}); err != nil {
		t.Fatalf("Failed to ack refresh: %v", err)
	}

	// Record persisted before the handler ran.
	rec, ok := actions.Take("counter")
	if !ok {
		t.Fatal("Expected a durable action record")
	}
	if rec.ActionName != "increment" {
		t.Errorf("Unexpected record: %+v", rec)
	}

	// After the last subscription is removed the native listener is gone:
	// further host actions are dropped before the store.
	binding.Unbind()
	if err := conn.WriteJSON(host.Frame{Type: host.FrameWidgetAction, WidgetID: "counter", Payload: action}); err != nil {
		t.Fatalf("Failed to send action: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := actions.Take("counter"); ok {
		t.Error("Expected no record after listener teardown")
	}
}
