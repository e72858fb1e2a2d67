package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/voltra-ui/voltra/host"
	"github.com/voltra-ui/voltra/proto"
)

// DefaultTimeout bounds one push-and-refresh cycle against the host.
const DefaultTimeout = 30 * time.Second

// Result reports the outcome of an update. Expected failure modes land here
// instead of surfacing as errors from Update.
type Result struct {
	Success bool
	Err     error
}

// Updater pushes rendered payloads to the native host. The host call runs on
// its own goroutine and is awaited with a hard timeout; exceeding it
// abandons the wait (best-effort, the host-side operation itself is not
// cancelled) and reports a TIMEOUT-coded failure. On any failure the host
// keeps its last successfully displayed state, so a failed update degrades
// to stale, never to blank.
type Updater struct {
	bridge  host.Bridge
	timeout time.Duration
}

func NewUpdater(bridge host.Bridge) *Updater {
	return &Updater{bridge: bridge, timeout: DefaultTimeout}
}

// WithTimeout overrides the refresh time bound.
func (u *Updater) WithTimeout(d time.Duration) *Updater {
	if d > 0 {
		u.timeout = d
	}
	return u
}

// Update serializes payload, stores it on the host and requests a refresh.
// Calling it again with the same payload is safe; the displayed result is
// the same.
func (u *Updater) Update(ctx context.Context, widgetID string, payload *proto.Payload) Result {
	if payload == nil {
		return Result{Err: Error{Code: ErrCodeInvalidInput, Message: "nil payload"}}
	}
	data, err := payload.Marshal()
	if err != nil {
		return Result{Err: Error{Code: ErrCodeInvalidInput, Message: "failed to serialize payload", Cause: err}}
	}

	tctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if err := u.bridge.UpdateWidget(tctx, widgetID, data); err != nil {
			done <- err
			return
		}
		done <- u.bridge.RequestRefresh(tctx, widgetID)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Error("Widget update timed out", "widgetId", widgetID, "timeout", u.timeout.String())
			return Result{Err: Error{Code: ErrCodeTimeout, Message: "host refresh did not complete in time", Cause: err}}
		}
		if err != nil {
			slog.Error("Widget update failed", "widgetId", widgetID, "error", err.Error())
			return Result{Err: Error{Code: ErrCodeHost, Message: "host rejected update", Cause: err}}
		}
		slog.Debug("Widget updated", "widgetId", widgetID, "size", len(data))
		return Result{Success: true}
	case <-tctx.Done():
		slog.Error("Widget update timed out", "widgetId", widgetID, "timeout", u.timeout.String())
		return Result{Err: Error{Code: ErrCodeTimeout, Message: "host refresh did not complete in time", Cause: tctx.Err()}}
	}
}
