package host

import (
	"context"
	"sync"

	"github.com/voltra-ui/voltra/bus"
)

// Loopback is an in-memory Bridge for tests and headless development. It
// records stored payloads, models "displayed" state the way a real host
// does (a payload becomes visible only after a successful refresh), and
// lets tests script refresh failures, hangs, and synthetic interactions.
type Loopback struct {
	mu        sync.Mutex
	stored    map[string][]byte
	displayed map[string][]byte
	onAction  func(bus.Event)

	refreshErr   error
	refreshBlock chan struct{}
	updates      int
	refreshes    int
}

func NewLoopback() *Loopback {
	return &Loopback{
		stored:    make(map[string][]byte),
		displayed: make(map[string][]byte),
	}
}

func (l *Loopback) UpdateWidget(ctx context.Context, widgetID string, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)
	l.stored[widgetID] = stored
	l.updates++
	return nil
}

func (l *Loopback) RequestRefresh(ctx context.Context, widgetIDs ...string) error {
	l.mu.Lock()
	block := l.refreshBlock
	err := l.refreshErr
	l.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	if len(widgetIDs) == 0 {
		for id, payload := range l.stored {
			l.displayed[id] = payload
		}
		return nil
	}
	for _, id := range widgetIDs {
		if payload, ok := l.stored[id]; ok {
			l.displayed[id] = payload
		}
	}
	return nil
}

func (l *Loopback) ClearWidget(ctx context.Context, widgetID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stored, widgetID)
	delete(l.displayed, widgetID)
	return nil
}

func (l *Loopback) ClearAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stored = make(map[string][]byte)
	l.displayed = make(map[string][]byte)
	return nil
}

func (l *Loopback) ActiveWidgets(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	widgets := make([]string, 0, len(l.stored))
	for id := range l.stored {
		widgets = append(widgets, id)
	}
	return widgets, nil
}

func (l *Loopback) RequestPin(ctx context.Context, widgetID string, preview *PreviewDims) error {
	return nil
}

func (l *Loopback) OnAction(fn func(bus.Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAction = fn
}

// InjectAction simulates a user interaction on the host.
func (l *Loopback) InjectAction(ev bus.Event) {
	l.mu.Lock()
	fn := l.onAction
	l.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// FailRefresh makes every subsequent refresh return err (nil restores
// success).
func (l *Loopback) FailRefresh(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshErr = err
}

// BlockRefresh makes refreshes hang until the returned release function is
// called, simulating a host that never resolves.
func (l *Loopback) BlockRefresh() (release func()) {
	ch := make(chan struct{})
	l.mu.Lock()
	l.refreshBlock = ch
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(ch)
			l.mu.Lock()
			l.refreshBlock = nil
			l.mu.Unlock()
		})
	}
}

// Displayed returns the payload the host is currently showing for widgetID.
func (l *Loopback) Displayed(widgetID string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	payload, ok := l.displayed[widgetID]
	return payload, ok
}

// UpdateCount reports how many UpdateWidget calls the host has seen.
func (l *Loopback) UpdateCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}

// RefreshCount reports how many refreshes completed successfully.
func (l *Loopback) RefreshCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes
}
