package render

import (
	"maps"
	"slices"
	"strconv"

	"github.com/ohler55/ojg/jp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// DefaultHitTolerance is the distance, in map units, within which a point or
// line feature counts as hit by a query point.
const DefaultHitTolerance = 2.0

// Call records one mutation applied to an [Offscreen] renderer while
// recording is on. Op is "set", "remove", or "dim".
type Call struct {
	Op      string
	Feature pathway.FeatureID
	Key     string
	Value   any
}

type offscreenFeature struct {
	Feature
	geometry orb.Geometry
}

// Offscreen is an in-memory [Renderer]. It stores per-feature state records,
// hit-tests query points against planar geometry loaded from GeoJSON, and
// evaluates JSONPath property filters. A recording mode captures every state
// mutation so tests can assert that side effects fire only at reference-count
// boundaries.
//
// Offscreen is not safe for concurrent use; the flatmap package serializes
// access behind its map-level mutex.
type Offscreen struct {
	features  map[pathway.FeatureID]*offscreenFeature
	order     []pathway.FeatureID // feature ids in load order
	states    map[pathway.FeatureID]State
	dimmed    bool
	tolerance float64
	recording bool
	calls     []Call
}

var _ Renderer = (*Offscreen)(nil)

// NewOffscreen creates an empty offscreen renderer with the default hit
// tolerance.
func NewOffscreen() *Offscreen {
	return &Offscreen{
		features:  make(map[pathway.FeatureID]*offscreenFeature),
		states:    make(map[pathway.FeatureID]State),
		tolerance: DefaultHitTolerance,
	}
}

// SetHitTolerance sets the distance within which point and line features
// count as hit. Values at or below zero reset to the default.
func (o *Offscreen) SetHitTolerance(tolerance float64) {
	if tolerance <= 0 {
		tolerance = DefaultHitTolerance
	}
	o.tolerance = tolerance
}

// LoadGeoJSON adds every feature of a GeoJSON feature collection. Feature
// ids are read from the "featureId" property, falling back to the GeoJSON
// feature id; features without a usable id are skipped. The "layer" property
// assigns the feature's layer, defaulting to "features".
func (o *Offscreen) LoadGeoJSON(data []byte) error {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidBundle, err, "parse feature collection")
	}
	for _, f := range fc.Features {
		id, ok := featureIDOf(f)
		if !ok {
			continue
		}
		layer := "features"
		if l, ok := f.Properties["layer"].(string); ok && l != "" {
			layer = l
		}
		o.AddFeature(Feature{
			ID:         id,
			Layer:      layer,
			Properties: maps.Clone(map[string]any(f.Properties)),
		}, f.Geometry)
	}
	return nil
}

// featureIDOf extracts the engine feature id from a GeoJSON feature.
func featureIDOf(f *geojson.Feature) (pathway.FeatureID, bool) {
	if v, ok := f.Properties["featureId"]; ok {
		if n, ok := v.(float64); ok && n >= 0 {
			return pathway.FeatureID(n), true
		}
	}
	switch id := f.ID.(type) {
	case float64:
		if id >= 0 {
			return pathway.FeatureID(id), true
		}
	case string:
		if n, err := strconv.ParseUint(id, 10, 32); err == nil {
			return pathway.FeatureID(n), true
		}
	}
	return 0, false
}

// AddFeature registers a feature and its geometry. Re-adding an id replaces
// the previous feature but keeps any state already set for it.
func (o *Offscreen) AddFeature(f Feature, geometry orb.Geometry) {
	if f.Properties == nil {
		f.Properties = map[string]any{}
	}
	if _, exists := o.features[f.ID]; !exists {
		o.order = append(o.order, f.ID)
	}
	o.features[f.ID] = &offscreenFeature{Feature: f, geometry: geometry}
}

// NumFeatures returns the number of registered features.
func (o *Offscreen) NumFeatures() int { return len(o.order) }

// Feature returns the registered feature with the given id.
func (o *Offscreen) Feature(id pathway.FeatureID) (Feature, bool) {
	f, ok := o.features[id]
	if !ok {
		return Feature{}, false
	}
	return f.Feature, true
}

// Features returns all registered features in load order.
func (o *Offscreen) Features() []Feature {
	out := make([]Feature, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.features[id].Feature)
	}
	return out
}

// SetFeatureState merges the partial state record into the feature's current
// state.
func (o *Offscreen) SetFeatureState(id pathway.FeatureID, state State) {
	if len(state) == 0 {
		return
	}
	st, ok := o.states[id]
	if !ok {
		st = State{}
		o.states[id] = st
	}
	for _, k := range slices.Sorted(maps.Keys(state)) {
		st[k] = state[k]
		if o.recording {
			o.calls = append(o.calls, Call{Op: "set", Feature: id, Key: k, Value: state[k]})
		}
	}
}

// RemoveFeatureState deletes one key from the feature's state record.
func (o *Offscreen) RemoveFeatureState(id pathway.FeatureID, key string) {
	if st, ok := o.states[id]; ok {
		delete(st, key)
		if len(st) == 0 {
			delete(o.states, id)
		}
	}
	if o.recording {
		o.calls = append(o.calls, Call{Op: "remove", Feature: id, Key: key})
	}
}

// GetFeatureState returns a copy of the feature's state record. Features
// with no state return nil.
func (o *Offscreen) GetFeatureState(id pathway.FeatureID) State {
	return o.states[id].Clone()
}

// SetDimmed switches the global dimmed paint mode.
func (o *Offscreen) SetDimmed(dimmed bool) {
	o.dimmed = dimmed
	if o.recording {
		o.calls = append(o.calls, Call{Op: "dim", Value: dimmed})
	}
}

// Dimmed reports whether the dimmed paint mode is on.
func (o *Offscreen) Dimmed() bool { return o.dimmed }

// QueryFeaturesAtPoint returns the features whose geometry contains the
// point or lies within the hit tolerance of it, in load order.
func (o *Offscreen) QueryFeaturesAtPoint(p Point) []Feature {
	var out []Feature
	for _, id := range o.order {
		f := o.features[id]
		if f.geometry == nil {
			continue
		}
		if hitTest(f.geometry, p, o.tolerance) {
			out = append(out, f.Feature)
		}
	}
	return out
}

// hitTest reports whether the point hits the geometry. Areal geometry uses
// containment; point and line geometry uses distance within tolerance.
func hitTest(g orb.Geometry, p orb.Point, tolerance float64) bool {
	switch geom := g.(type) {
	case orb.Point:
		return planar.Distance(geom, p) <= tolerance
	case orb.MultiPoint:
		return planar.DistanceFrom(geom, p) <= tolerance
	case orb.LineString:
		return planar.DistanceFrom(geom, p) <= tolerance
	case orb.MultiLineString:
		return planar.DistanceFrom(geom, p) <= tolerance
	case orb.Ring:
		return planar.RingContains(geom, p)
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	case orb.Collection:
		for _, sub := range geom {
			if hitTest(sub, p, tolerance) {
				return true
			}
		}
	}
	return false
}

// QueryFeaturesBySourceFilter returns the features of a layer whose property
// documents match a JSONPath filter expression, in load order. An empty
// layerID matches every layer.
//
// Each feature's properties are evaluated as a one-document array, so the
// canonical filter form is
//
//	$[?(@.kind == 'nerve')]
//
// and a feature matches when the expression yields at least one result.
func (o *Offscreen) QueryFeaturesBySourceFilter(layerID, filter string) ([]Feature, error) {
	expr, err := jp.ParseString(filter)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFilter, err, "parse feature filter %q", filter)
	}
	var out []Feature
	for _, id := range o.order {
		f := o.features[id]
		if layerID != "" && f.Layer != layerID {
			continue
		}
		if len(expr.Get([]any{f.Properties})) > 0 {
			out = append(out, f.Feature)
		}
	}
	return out, nil
}

// SetRecording switches call recording on or off. Turning recording on does
// not clear previously recorded calls; use ResetCalls.
func (o *Offscreen) SetRecording(on bool) { o.recording = on }

// Calls returns a copy of the recorded mutation log.
func (o *Offscreen) Calls() []Call { return slices.Clone(o.calls) }

// ResetCalls clears the recorded mutation log.
func (o *Offscreen) ResetCalls() { o.calls = nil }

// CountCalls returns how many recorded calls match the op and key. An empty
// key matches any key.
func (o *Offscreen) CountCalls(op, key string) int {
	n := 0
	for _, c := range o.calls {
		if c.Op == op && (key == "" || c.Key == key) {
			n++
		}
	}
	return n
}
