package flatmap

import (
	"github.com/anatomaps/flatmap/pkg/pathway"
	"github.com/anatomaps/flatmap/pkg/render"
)

// EventKind distinguishes interaction callbacks.
type EventKind string

const (
	// EventActivate reports hover-driven changes to the active set.
	EventActivate EventKind = "activate"
	// EventSelect reports click-driven changes to the selection.
	EventSelect EventKind = "select"
)

// Event describes the outcome of one pointer interaction.
type Event struct {
	Kind     EventKind           `json:"kind"`
	Point    render.Point        `json:"point"`
	Features []pathway.FeatureID `json:"features,omitempty"`
}

// EventFunc receives interaction events. Handlers run outside the map's
// mutex on the goroutine delivering the pointer event.
type EventFunc func(Event)

// SetEventHandler installs the interaction event callback. A nil handler
// turns delivery off.
func (m *Map) SetEventHandler(fn EventFunc) {
	m.mu.Lock()
	m.eventFn = fn
	m.mu.Unlock()
}

// OnPointerMove clears the active set and re-populates it from the features
// under the pointer, extended to the full paths they participate in so
// hovering one line lights up the whole neuron path. It returns the ids
// actually activated; hidden features stay inactive. An activate event is
// delivered only when something activated.
func (m *Map) OnPointerMove(p render.Point) []pathway.FeatureID {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return nil
	}
	m.selection.ResetActiveFeatures()
	var activated []pathway.FeatureID
	for _, f := range m.renderer.QueryFeaturesAtPoint(p) {
		for _, id := range m.relatedLocked(f.ID) {
			if m.selection.ActivateFeature(id) {
				activated = append(activated, id)
			}
		}
	}
	fn := m.eventFn
	m.mu.Unlock()

	if fn != nil && len(activated) > 0 {
		fn(Event{Kind: EventActivate, Point: p, Features: activated})
	}
	return activated
}

// OnClick resolves the features under the pointer into the selection. A
// plain click replaces the selection with the hits; with multiselect the
// hits join it. A click on empty space clears the selection unless
// multiselect is held. It returns the ids actually selected; a select event
// is delivered for every click, empty ones included, so callers can react
// to the selection being cleared.
func (m *Map) OnClick(p render.Point, multiselect bool) []pathway.FeatureID {
	m.mu.Lock()
	if !m.ready {
		m.mu.Unlock()
		return nil
	}
	hits := m.renderer.QueryFeaturesAtPoint(p)
	if !multiselect {
		m.selection.UnselectAll()
	}
	var selected []pathway.FeatureID
	for _, f := range hits {
		if m.selection.SelectFeature(f.ID, m.opts.ShouldDim()) {
			selected = append(selected, f.ID)
		}
	}
	fn := m.eventFn
	m.mu.Unlock()

	if fn != nil {
		fn(Event{Kind: EventSelect, Point: p, Features: selected})
	}
	return selected
}

// relatedLocked returns the feature plus every feature of the paths it
// participates in.
func (m *Map) relatedLocked(id pathway.FeatureID) []pathway.FeatureID {
	paths := m.registry.PathsAtFeature(id)
	if len(paths) == 0 {
		return []pathway.FeatureID{id}
	}
	features := m.registry.PathFeatures(paths...)
	features.Add(id)
	return features.ToArray()
}
