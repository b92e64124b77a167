package render

import (
	"slices"
	"testing"

	"github.com/paulmach/orb"

	"github.com/anatomaps/flatmap/pkg/errors"
)

// testRenderer builds an offscreen renderer with a polygon, a line, and a
// point feature.
func testRenderer() *Offscreen {
	o := NewOffscreen()
	o.AddFeature(Feature{
		ID:         1,
		Layer:      "features",
		Properties: map[string]any{"kind": "organ", "label": "heart"},
	}, orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}})
	o.AddFeature(Feature{
		ID:         2,
		Layer:      "pathways",
		Properties: map[string]any{"kind": "nerve", "label": "vagus"},
	}, orb.LineString{{20, 0}, {30, 0}})
	o.AddFeature(Feature{
		ID:         3,
		Layer:      "pathways",
		Properties: map[string]any{"kind": "node"},
	}, orb.Point{40, 5})
	return o
}

func TestFeatureState(t *testing.T) {
	o := NewOffscreen()

	if got := o.GetFeatureState(7); got != nil {
		t.Errorf("GetFeatureState(7) = %v, want nil", got)
	}

	o.SetFeatureState(7, State{StateHidden: true})
	if !o.GetFeatureState(7).Bool(StateHidden) {
		t.Error("hidden flag not set")
	}

	// Partial merge keeps existing keys.
	o.SetFeatureState(7, State{StateSelected: true})
	st := o.GetFeatureState(7)
	if !st.Bool(StateHidden) || !st.Bool(StateSelected) {
		t.Errorf("state = %v, want hidden and selected", st)
	}

	o.RemoveFeatureState(7, StateHidden)
	st = o.GetFeatureState(7)
	if st.Bool(StateHidden) {
		t.Error("hidden flag still set after removal")
	}
	if !st.Bool(StateSelected) {
		t.Error("selected flag lost by unrelated removal")
	}

	// Returned state is a copy.
	st[StateActive] = true
	if o.GetFeatureState(7).Bool(StateActive) {
		t.Error("GetFeatureState returned internal storage")
	}
}

func TestQueryFeaturesAtPoint(t *testing.T) {
	o := testRenderer()

	tests := []struct {
		name  string
		point Point
		want  []uint32
	}{
		{"InsidePolygon", Point{5, 5}, []uint32{1}},
		{"OutsideEverything", Point{100, 100}, nil},
		{"NearLine", Point{25, 1}, []uint32{2}},
		{"FarFromLine", Point{25, 5}, nil},
		{"OnPoint", Point{40, 5}, []uint32{3}},
		{"NearPoint", Point{41, 5}, []uint32{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []uint32
			for _, f := range o.QueryFeaturesAtPoint(tt.point) {
				got = append(got, f.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("QueryFeaturesAtPoint(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestHitTolerance(t *testing.T) {
	o := testRenderer()

	// Within the default tolerance of 2.
	if got := o.QueryFeaturesAtPoint(Point{25, 1.5}); len(got) != 1 {
		t.Fatalf("default tolerance: got %d features, want 1", len(got))
	}

	o.SetHitTolerance(0.5)
	if got := o.QueryFeaturesAtPoint(Point{25, 1.5}); len(got) != 0 {
		t.Errorf("tight tolerance: got %d features, want 0", len(got))
	}
}

func TestQueryFeaturesBySourceFilter(t *testing.T) {
	o := testRenderer()

	tests := []struct {
		name    string
		layer   string
		filter  string
		want    []uint32
		wantErr bool
	}{
		{
			name:   "KindEquals",
			layer:  "pathways",
			filter: `$[?(@.kind == 'nerve')]`,
			want:   []uint32{2},
		},
		{
			name:   "AllLayers",
			layer:  "",
			filter: `$[?(@.kind != 'node')]`,
			want:   []uint32{1, 2},
		},
		{
			name:   "LayerRestricts",
			layer:  "features",
			filter: `$[?(@.kind == 'nerve')]`,
			want:   nil,
		},
		{
			name:   "NoMatch",
			layer:  "",
			filter: `$[?(@.kind == 'vessel')]`,
			want:   nil,
		},
		{
			name:    "BadFilter",
			layer:   "",
			filter:  `$[?(`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features, err := o.QueryFeaturesBySourceFilter(tt.layer, tt.filter)
			if (err != nil) != tt.wantErr {
				t.Fatalf("QueryFeaturesBySourceFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidFilter) {
					t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFilter)
				}
				return
			}
			var got []uint32
			for _, f := range features {
				got = append(got, f.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("QueryFeaturesBySourceFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadGeoJSON(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Polygon", "coordinates": [[[0,0],[4,0],[4,4],[0,4],[0,0]]]},
				"properties": {"featureId": 11, "layer": "organs", "label": "stomach"}
			},
			{
				"type": "Feature",
				"id": "12",
				"geometry": {"type": "Point", "coordinates": [9, 9]},
				"properties": {"label": "node"}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [1, 1]},
				"properties": {"label": "no id, skipped"}
			}
		]
	}`)

	o := NewOffscreen()
	if err := o.LoadGeoJSON(data); err != nil {
		t.Fatalf("LoadGeoJSON: %v", err)
	}

	if o.NumFeatures() != 2 {
		t.Fatalf("NumFeatures() = %d, want 2", o.NumFeatures())
	}

	f, ok := o.Feature(11)
	if !ok {
		t.Fatal("feature 11 not loaded")
	}
	if f.Layer != "organs" {
		t.Errorf("feature 11 layer = %q, want %q", f.Layer, "organs")
	}

	// Id fell back to the GeoJSON feature id, layer to the default.
	f, ok = o.Feature(12)
	if !ok {
		t.Fatal("feature 12 not loaded")
	}
	if f.Layer != "features" {
		t.Errorf("feature 12 layer = %q, want %q", f.Layer, "features")
	}

	if got := o.QueryFeaturesAtPoint(Point{2, 2}); len(got) != 1 || got[0].ID != 11 {
		t.Errorf("QueryFeaturesAtPoint(2,2) = %v, want feature 11", got)
	}
}

func TestLoadGeoJSONMalformed(t *testing.T) {
	o := NewOffscreen()
	err := o.LoadGeoJSON([]byte(`{"type": "FeatureCollection", "features": [`))
	if err == nil {
		t.Fatal("LoadGeoJSON should fail on malformed input")
	}
	if !errors.Is(err, errors.ErrCodeInvalidBundle) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidBundle)
	}
}

func TestRecording(t *testing.T) {
	o := NewOffscreen()
	o.SetRecording(true)

	o.SetFeatureState(1, State{StateHidden: true})
	o.RemoveFeatureState(1, StateHidden)
	o.SetDimmed(true)

	calls := o.Calls()
	if len(calls) != 3 {
		t.Fatalf("len(Calls()) = %d, want 3", len(calls))
	}
	want := []Call{
		{Op: "set", Feature: 1, Key: StateHidden, Value: true},
		{Op: "remove", Feature: 1, Key: StateHidden},
		{Op: "dim", Value: true},
	}
	for i, c := range calls {
		if c != want[i] {
			t.Errorf("calls[%d] = %+v, want %+v", i, c, want[i])
		}
	}

	if got := o.CountCalls("set", StateHidden); got != 1 {
		t.Errorf("CountCalls(set, hidden) = %d, want 1", got)
	}

	o.ResetCalls()
	if len(o.Calls()) != 0 {
		t.Error("ResetCalls left recorded calls behind")
	}

	// Recording off: mutations still apply, nothing is logged.
	o.SetRecording(false)
	o.SetFeatureState(2, State{StateActive: true})
	if len(o.Calls()) != 0 {
		t.Error("mutation recorded while recording off")
	}
	if !o.GetFeatureState(2).Bool(StateActive) {
		t.Error("mutation not applied while recording off")
	}
}

func TestDimmed(t *testing.T) {
	o := NewOffscreen()
	if o.Dimmed() {
		t.Error("new renderer should not be dimmed")
	}
	o.SetDimmed(true)
	if !o.Dimmed() {
		t.Error("SetDimmed(true) not applied")
	}
}
