package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/proto"
)

func testPayload(t *testing.T, text string) *proto.Payload {
	t.Helper()
	payload, err := proto.Render(proto.Variant{
		Width:  150,
		Height: 100,
		Root: &proto.Node{
			Kind:     proto.KindContainer,
			ID:       "root",
			Children: []*proto.Node{{Kind: proto.KindText, ID: "label", Props: proto.Props{"text": text}}},
		},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return payload
}

func TestUpdater_Success(t *testing.T) {
	loopback := host.NewLoopback()
	updater := NewUpdater(loopback)

	payload := testPayload(t, "hello")
	result := updater.Update(context.Background(), "counter", payload)
	if !result.Success {
		t.Fatalf("Expected success, got %v", result.Err)
	}

	displayed, ok := loopback.Displayed("counter")
	if !ok {
		t.Fatal("Expected a displayed payload after successful update")
	}
	want, _ := payload.Marshal()
	if !bytes.Equal(displayed, want) {
		t.Errorf("Displayed payload mismatch.\nwant: %s\ngot:  %s", want, displayed)
	}
}

func TestUpdater_TimeoutFallsBackToStaleState(t *testing.T) {
	loopback := host.NewLoopback()
	updater := NewUpdater(loopback).WithTimeout(50 * time.Millisecond)

	first := testPayload(t, "v1")
	if result := updater.Update(context.Background(), "counter", first); !result.Success {
		t.Fatalf("Initial update failed: %v", result.Err)
	}

	release := loopback.BlockRefresh()
	defer release()

	result := updater.Update(context.Background(), "counter", testPayload(t, "v2"))
	if result.Success {
		t.Fatal("Expected timeout failure")
	}
	if CodeOf(result.Err) != ErrCodeTimeout {
		t.Errorf("Expected TIMEOUT code, got %q (%v)", CodeOf(result.Err), result.Err)
	}

	// The previously displayed state must remain as-is: stale, not blank.
	displayed, ok := loopback.Displayed("counter")
	if !ok {
		t.Fatal("Expected prior displayed state to survive the timeout")
	}
	want, _ := first.Marshal()
	if !bytes.Equal(displayed, want) {
		t.Errorf("Expected stale-but-valid prior payload, got %s", displayed)
	}
}

func TestUpdater_HostErrorIsNotTimeout(t *testing.T) {
	loopback := host.NewLoopback()
	updater := NewUpdater(loopback)
	loopback.FailRefresh(errors.New("render failed"))

	result := updater.Update(context.Background(), "counter", testPayload(t, "v1"))
	if result.Success {
		t.Fatal("Expected failure")
	}
	if CodeOf(result.Err) != ErrCodeHost {
		t.Errorf("Expected HOST_ERROR code, got %q (%v)", CodeOf(result.Err), result.Err)
	}
}

func TestUpdater_NilPayload(t *testing.T) {
	updater := NewUpdater(host.NewLoopback())

	result := updater.Update(context.Background(), "counter", nil)
	if result.Success {
		t.Fatal("Expected failure for nil payload")
	}
	if CodeOf(result.Err) != ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT code, got %q", CodeOf(result.Err))
	}
}

func TestUpdater_RetryIsIdempotent(t *testing.T) {
	loopback := host.NewLoopback()
	updater := NewUpdater(loopback)

	payload := testPayload(t, "same")
	for i := 0; i < 2; i++ {
		if result := updater.Update(context.Background(), "counter", payload); !result.Success {
			t.Fatalf("Update %d failed: %v", i, result.Err)
		}
	}

	displayed, _ := loopback.Displayed("counter")
	want, _ := payload.Marshal()
	if !bytes.Equal(displayed, want) {
		t.Error("Expected retried update to display the same state")
	}
	if loopback.UpdateCount() != 2 {
		t.Errorf("Expected 2 update calls, got %d", loopback.UpdateCount())
	}
}
