package store

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// ActionRecord is the durable trace of the last interaction on one widget
// instance.
type ActionRecord struct {
	ActionName  string `json:"actionName"`
	ComponentID string `json:"componentId"`
	Timestamp   int64  `json:"timestamp"`
}

// ActionStore keeps a single-slot "last interaction" record per widget
// instance: every store overwrites, every take clears. Storage failures are
// logged and reported as a boolean so they never abort the dispatch flow
// that triggered the write.
type ActionStore struct {
	kv        KV
	namespace string
	mu        sync.Mutex
}

// NewActionStore wraps kv with the given key namespace. Widgets from
// different applications sharing one KV must use distinct namespaces.
func NewActionStore(kv KV, namespace string) *ActionStore {
	if namespace == "" {
		namespace = "voltra.action"
	}
	return &ActionStore{kv: kv, namespace: namespace}
}

func (s *ActionStore) key(widgetID string) string {
	return s.namespace + "." + widgetID
}

// Store overwrites the record for widgetID. Returns false when the
// underlying storage rejected the write; the caller should proceed with the
// refresh attempt regardless.
func (s *ActionStore) Store(widgetID, actionName, componentID string, timestamp int64) bool {
	rec := ActionRecord{ActionName: actionName, ComponentID: componentID, Timestamp: timestamp}
	data, err := json.Marshal(rec)
	if err != nil {
		slog.Error("Failed to encode action record", "widgetId", widgetID, "error", err.Error())
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Put(s.key(widgetID), data); err != nil {
		slog.Error("Failed to persist action record", "widgetId", widgetID, "error", err.Error())
		return false
	}
	return true
}

// Take returns the current record and atomically clears it. A second take
// before a new store reports no record, so one physical interaction is
// consumed at most once even across process restarts.
func (s *ActionStore) Take(widgetID string) (ActionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.kv.Get(s.key(widgetID))
	if err != nil {
		slog.Error("Failed to read action record", "widgetId", widgetID, "error", err.Error())
		return ActionRecord{}, false
	}
	if !ok {
		return ActionRecord{}, false
	}

	if err := s.kv.Delete(s.key(widgetID)); err != nil {
		slog.Error("Failed to clear action record", "widgetId", widgetID, "error", err.Error())
		return ActionRecord{}, false
	}

	var rec ActionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		slog.Error("Discarding corrupt action record", "widgetId", widgetID, "error", err.Error())
		return ActionRecord{}, false
	}
	return rec, true
}
