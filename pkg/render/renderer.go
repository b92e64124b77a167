// Package render defines the boundary between the visibility engine and
// whatever draws the map. The engine never talks to a rendering technology
// directly: it tags feature ids with small state records through [StateSetter]
// and resolves screen points and filters through [Querier]. The package also
// ships [Offscreen], an in-memory renderer used by tests, the control API,
// and headless tooling.
package render

import (
	"maps"

	"github.com/paulmach/orb"

	"github.com/anatomaps/flatmap/pkg/pathway"
)

// Feature state keys the engine writes. Renderer styling layers key their
// paint rules off these flags.
const (
	// StateHidden marks a feature whose enablement count is zero. Geometry
	// stays loaded; this is a presentation hint.
	StateHidden = "hidden"
	// StateSelected marks a feature with a positive selection count.
	StateSelected = "selected"
	// StateActive marks a hovered or hover-related feature.
	StateActive = "active"
	// StateAnnotated marks a feature carrying provenance annotations.
	StateAnnotated = "annotated"
	// StateInvisible marks a feature that no facet can re-enable, such as a
	// centreline with no associated paths in a non-centreline map style. It
	// is set once at map load and sits outside the reference-count system.
	StateInvisible = "invisible"
)

// Point is a position in the renderer's coordinate space.
type Point = orb.Point

// State is a feature's renderer state record: a small bag of flags keyed by
// the State* constants.
type State map[string]any

// Bool reports whether the state flag is present and true.
func (s State) Bool(key string) bool {
	v, ok := s[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Clone returns a copy of the state record. A nil state clones to nil.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Feature is a renderable entity as reported by renderer queries.
type Feature struct {
	ID         pathway.FeatureID
	Layer      string
	Properties map[string]any
}

// StateSetter is the side-effect capability the trackers require: tag a
// feature id with state flags and read them back. Calls are synchronous and
// fire-and-forget; implementations that draw asynchronously must apply state
// in call order.
type StateSetter interface {
	// SetFeatureState merges the partial state record into the feature's
	// current state.
	SetFeatureState(id pathway.FeatureID, state State)
	// RemoveFeatureState deletes one key from the feature's state record.
	RemoveFeatureState(id pathway.FeatureID, key string)
	// GetFeatureState returns the feature's current state record.
	GetFeatureState(id pathway.FeatureID) State
}

// Querier resolves positions and property filters to features.
type Querier interface {
	// QueryFeaturesAtPoint returns the features whose geometry contains or
	// lies within hit tolerance of the point.
	QueryFeaturesAtPoint(p Point) []Feature
	// QueryFeaturesBySourceFilter returns the features of a layer whose
	// properties match a JSONPath filter expression.
	QueryFeaturesBySourceFilter(layerID, filter string) ([]Feature, error)
}

// PaintControl toggles renderer-global paint modes.
type PaintControl interface {
	// SetDimmed switches the global dimmed paint mode used while a
	// selection is in effect.
	SetDimmed(dimmed bool)
}

// Renderer is the full collaborator contract the engine consumes.
type Renderer interface {
	StateSetter
	Querier
	PaintControl
}
