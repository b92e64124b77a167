package flatmap

import (
	"slices"

	"github.com/google/uuid"
)

// Change describes what a completed toggle operation affected. Exactly one
// field group is set per notification.
type Change struct {
	PathType    string   `json:"pathType,omitempty"`
	System      string   `json:"system,omitempty"`
	Taxons      []string `json:"taxons,omitempty"`
	Centrelines []string `json:"centrelines,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// WatcherFunc receives a notification after a toggle operation that
// actually changed state. Callbacks run outside the map's mutex on the
// goroutine that performed the operation, so they may call back into the
// map but must not block it indefinitely.
type WatcherFunc func(Change)

// AddWatcher registers a change callback and returns its registration id.
func (m *Map) AddWatcher(fn WatcherFunc) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.watchers[id] = fn
	m.mu.Unlock()
	return id
}

// RemoveWatcher drops a previously registered callback. Unknown ids are
// ignored.
func (m *Map) RemoveWatcher(id string) {
	m.mu.Lock()
	delete(m.watchers, id)
	m.mu.Unlock()
}

// watchersLocked snapshots the registered callbacks in registration-id
// order. Callers hold the map mutex; the snapshot is invoked after release
// so a callback removed mid-operation may still see that operation's
// change.
func (m *Map) watchersLocked() []WatcherFunc {
	if len(m.watchers) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]WatcherFunc, len(ids))
	for i, id := range ids {
		out[i] = m.watchers[id]
	}
	return out
}

func notify(watchers []WatcherFunc, change Change) {
	for _, fn := range watchers {
		fn(change)
	}
}
