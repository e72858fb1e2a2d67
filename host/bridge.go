package host

import (
	"context"
	"errors"

	"github.com/voltra-ui/voltra/bus"
)

// PreviewDims is the preview size hint passed along with a pin request.
type PreviewDims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var (
	// ErrNoHost is returned when no native host process is connected.
	ErrNoHost = errors.New("no native host connected")
	// ErrRefreshFailed is returned when the host acknowledged a refresh
	// with an error.
	ErrRefreshFailed = errors.New("host refresh failed")
)

// Bridge is the narrow surface the core needs from the native host. A failed
// or timed-out call never clears previously displayed state; the host keeps
// rendering its last successfully applied payload.
type Bridge interface {
	// UpdateWidget stores the serialized payload for widgetID on the host.
	UpdateWidget(ctx context.Context, widgetID string, payload []byte) error
	// RequestRefresh asks the host to re-render the given widgets, or all
	// widgets when none are named. It returns once the host acknowledges.
	RequestRefresh(ctx context.Context, widgetIDs ...string) error
	// ClearWidget removes the stored payload for widgetID.
	ClearWidget(ctx context.Context, widgetID string) error
	// ClearAll removes all stored payloads.
	ClearAll(ctx context.Context) error
	// ActiveWidgets lists the widget instances the host currently knows.
	ActiveWidgets(ctx context.Context) ([]string, error)
	// RequestPin asks the host to offer pinning widgetID to the home
	// surface.
	RequestPin(ctx context.Context, widgetID string, preview *PreviewDims) error
	// OnAction registers the single action listener. Passing nil removes
	// it. The bridge delivers every host interaction to this listener.
	OnAction(fn func(bus.Event))
}
