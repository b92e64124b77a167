// Package facet implements the facet engine: named visibility dimensions
// (path types, taxa, centrelines, anatomical systems) whose per-key enabled
// state drives feature visibility through the shared enablement tracker.
package facet

import "slices"

// Facet tracks enabled/disabled state for one visibility dimension over a
// domain of keys. Keys are registered up front, usually from catalogue or
// bundle data, and listed in registration order.
//
// A facet knows keys, not features. Resolving a key to feature ids is the
// caller's job, and combining facets happens exclusively through the shared
// enablement tracker: every enable routes +1 and every disable routes -1
// through the same reference counts, so a feature stays visible only while
// every facet claiming it agrees.
//
// Facets are not safe for concurrent use; the flatmap package serializes
// all mutations behind its map-level mutex.
type Facet[K comparable] struct {
	name    string
	order   []K
	enabled map[K]bool
}

// New creates an empty facet. The name labels log lines and change records.
func New[K comparable](name string) *Facet[K] {
	return &Facet[K]{
		name:    name,
		enabled: make(map[K]bool),
	}
}

// Name returns the facet's label.
func (f *Facet[K]) Name() string { return f.name }

// Add registers a key with an initial state. Re-adding a key updates its
// state without changing its position in the listing order.
func (f *Facet[K]) Add(key K, enabled bool) {
	if _, ok := f.enabled[key]; !ok {
		f.order = append(f.order, key)
	}
	f.enabled[key] = enabled
}

// Enable sets the state of each requested key and returns the keys to act
// on, in request order. Without force, a key is returned only when its state
// actually changed, so callers can skip feature fan-out and watcher
// notification on no-op toggles. With force, every known requested key is
// returned even when its state already matched, so downstream renderer state
// can be re-applied. Unknown keys are ignored.
func (f *Facet[K]) Enable(keys []K, enabled bool, force bool) []K {
	changed := make([]K, 0, len(keys))
	for _, key := range keys {
		current, ok := f.enabled[key]
		if !ok {
			continue
		}
		if current != enabled || force {
			changed = append(changed, key)
		}
		f.enabled[key] = enabled
	}
	return changed
}

// Enabled reports the key's current state. Unknown keys report false.
func (f *Facet[K]) Enabled(key K) bool { return f.enabled[key] }

// Known reports whether the key is part of the facet's domain.
func (f *Facet[K]) Known(key K) bool {
	_, ok := f.enabled[key]
	return ok
}

// Len returns the number of registered keys.
func (f *Facet[K]) Len() int { return len(f.order) }

// Keys returns every registered key in registration order.
func (f *Facet[K]) Keys() []K { return slices.Clone(f.order) }

// EnabledKeys returns the currently enabled keys in registration order.
func (f *Facet[K]) EnabledKeys() []K {
	out := make([]K, 0, len(f.order))
	for _, key := range f.order {
		if f.enabled[key] {
			out = append(out, key)
		}
	}
	return out
}

// DisabledKeys returns the currently disabled keys in registration order.
func (f *Facet[K]) DisabledKeys() []K {
	out := make([]K, 0, len(f.order))
	for _, key := range f.order {
		if !f.enabled[key] {
			out = append(out, key)
		}
	}
	return out
}
