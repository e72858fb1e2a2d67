package host

import (
	"encoding/json"
)

// Frame is the envelope exchanged with a native host process over the
// bridge transport.
type Frame struct {
	Type      string          `json:"type"`
	WidgetID  string          `json:"widgetId,omitempty"`
	Ref       string          `json:"ref,omitempty"` // request/ack correlation
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

const (
	FrameUpdateWidget   = "updateWidget"
	FrameRequestRefresh = "requestRefresh"
	FrameClearWidget    = "clearWidget"
	FrameClearAll       = "clearAll"
	FrameRequestPin     = "requestPin"
	FrameWidgetAction   = "widgetAction"
	FrameActiveWidgets  = "activeWidgets"
	FrameAck            = "ack"
)

// ActionFrame is the widgetAction payload sent by the host. The widget id
// rides on the frame itself.
type ActionFrame struct {
	ActionName  string `json:"actionName"`
	ComponentID string `json:"componentId"`
	Timestamp   int64  `json:"timestamp"`
}

// AckPayload acknowledges a correlated request.
type AckPayload struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RefreshPayload names the widgets a refresh applies to; empty means all.
type RefreshPayload struct {
	WidgetIDs []string `json:"widgetIds,omitempty"`
}

// PinPayload carries the optional preview dimensions of a pin request.
type PinPayload struct {
	Preview *PreviewDims `json:"preview,omitempty"`
}

// WidgetsPayload is the host's report of its active widget instances.
type WidgetsPayload struct {
	WidgetIDs []string `json:"widgetIds"`
}
