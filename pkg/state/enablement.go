package state

import (
	"io"

	"github.com/RoaringBitmap/roaring"
	"github.com/charmbracelet/log"

	"github.com/anatomaps/flatmap/pkg/observability"
	"github.com/anatomaps/flatmap/pkg/pathway"
	"github.com/anatomaps/flatmap/pkg/render"
)

// FeatureIndex reports which feature ids exist and their containment
// children. The annotation table implements it; the enablement tracker uses
// it to ignore stale ids from UI events racing a map change and to expand
// parent features depth-first.
type FeatureIndex interface {
	Known(id pathway.FeatureID) bool
	Children(id pathway.FeatureID) []pathway.FeatureID
}

// Enablement is the reference-counted visibility tracker. Every feature id
// carries a non-negative count of independent reasons to stay visible: a
// system toggle, a path-type toggle, and a taxon toggle may all claim the
// same feature, and the feature hides only when the last claimant releases
// it. Renderer side effects fire exclusively at the 0-to-1 and 1-to-0 count
// boundaries, or on a forced call.
//
// Enablement is not safe for concurrent use; the flatmap package serializes
// all mutations behind its map-level mutex.
type Enablement struct {
	index  FeatureIndex
	setter render.StateSetter
	logger *log.Logger
	counts map[pathway.FeatureID]int
}

// NewEnablement creates a tracker over the given feature index, applying
// side effects through setter. A nil logger discards diagnostics.
func NewEnablement(index FeatureIndex, setter render.StateSetter, logger *log.Logger) *Enablement {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Enablement{
		index:  index,
		setter: setter,
		logger: logger,
		counts: make(map[pathway.FeatureID]int),
	}
}

// EnableFeature applies one reference-counted enable or disable.
//
// Without force, the count moves by one and the renderer is touched only at
// the 0-to-1 boundary (first claimant shows the feature) or the 1-to-0
// boundary (last claimant hides it). A disable at count zero is an
// unbalanced caller; it is clamped, logged, and otherwise ignored.
//
// With force, the count is set to exactly one (enable) or zero (disable)
// and the renderer state is re-applied unconditionally. Forced calls are
// how initial setup guarantees renderer state matches logical state even
// when the default already equals the request.
//
// Ids absent from the feature index are ignored.
func (e *Enablement) EnableFeature(id pathway.FeatureID, enable, force bool) {
	if !e.index.Known(id) {
		e.logger.Debug("ignoring unknown feature", "feature", id, "enable", enable)
		return
	}
	c := e.counts[id]
	if force {
		if enable {
			e.counts[id] = 1
			e.show(id)
		} else {
			delete(e.counts, id)
			e.hide(id)
		}
		return
	}
	if enable {
		if c == 0 {
			e.show(id)
		}
		e.counts[id] = c + 1
		return
	}
	switch {
	case c == 1:
		delete(e.counts, id)
		e.hide(id)
	case c > 1:
		e.counts[id] = c - 1
	default:
		// Unbalanced disable; clamp at zero and keep going.
		e.logger.Debug("enable count underflow clamped", "feature", id)
	}
}

// EnableFeatureWithChildren applies [Enablement.EnableFeature] to the
// feature and, depth-first, to every feature in its containment subtree.
// Containment is a tree by construction; a visited set guards against
// accidental cycles in the annotation data.
func (e *Enablement) EnableFeatureWithChildren(id pathway.FeatureID, enable, force bool) {
	e.enableSubtree(id, enable, force, make(map[pathway.FeatureID]bool))
}

func (e *Enablement) enableSubtree(id pathway.FeatureID, enable, force bool, visited map[pathway.FeatureID]bool) {
	if visited[id] {
		e.logger.Debug("containment cycle detected", "feature", id)
		return
	}
	visited[id] = true
	e.EnableFeature(id, enable, force)
	for _, child := range e.index.Children(id) {
		e.enableSubtree(child, enable, force, visited)
	}
}

// EnableFeatures applies [Enablement.EnableFeature] to every id in the set,
// in ascending order.
func (e *Enablement) EnableFeatures(features *roaring.Bitmap, enable, force bool) {
	features.Iterate(func(id uint32) bool {
		e.EnableFeature(id, enable, force)
		return true
	})
}

// Count returns the feature's current enablement reference count.
func (e *Enablement) Count(id pathway.FeatureID) int { return e.counts[id] }

// Enabled reports whether the feature is visible, i.e. its count is
// positive.
func (e *Enablement) Enabled(id pathway.FeatureID) bool { return e.counts[id] > 0 }

// EnabledFeatures returns the ids with positive counts as a fresh bitmap
// owned by the caller.
func (e *Enablement) EnabledFeatures() *roaring.Bitmap {
	out := roaring.New()
	for id := range e.counts {
		out.Add(id)
	}
	return out
}

// show clears the hidden flag and reports the transition.
func (e *Enablement) show(id pathway.FeatureID) {
	e.setter.RemoveFeatureState(id, render.StateHidden)
	observability.State().OnFeatureShown(id)
}

// hide sets the hidden flag and reports the transition.
func (e *Enablement) hide(id pathway.FeatureID) {
	e.setter.SetFeatureState(id, render.State{render.StateHidden: true})
	observability.State().OnFeatureHidden(id)
}
