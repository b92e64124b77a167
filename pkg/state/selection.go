package state

import (
	"io"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/charmbracelet/log"

	"github.com/anatomaps/flatmap/pkg/observability"
	"github.com/anatomaps/flatmap/pkg/pathway"
	"github.com/anatomaps/flatmap/pkg/render"
)

// Guard vets selection and activation requests before they take effect. The
// flatmap package supplies one that declines hidden features, permanently
// invisible features, and features whose SCKAN validity conflicts with the
// current SCKAN visibility state.
type Guard interface {
	// CanSelect reports whether the feature may join the selection set.
	CanSelect(id pathway.FeatureID) bool
	// CanActivate reports whether the feature may be marked active.
	CanActivate(id pathway.FeatureID) bool
}

// Painter is the renderer capability the selection tracker needs: feature
// state flags plus the global dimmed paint mode.
type Painter interface {
	render.StateSetter
	render.PaintControl
}

// Selection tracks user-driven selected and active feature sets,
// independently of the enablement tracker.
//
// Selected features are reference counted so the same feature can be
// selected through more than one route (a clicked line and its path's nodes,
// for instance) and stays selected until every route releases it. Active
// (hover) features are plain membership, cleared wholesale on every pointer
// move.
//
// Selection is not safe for concurrent use; the flatmap package serializes
// all mutations behind its map-level mutex.
type Selection struct {
	painter Painter
	guard   Guard
	logger  *log.Logger
	counts  map[pathway.FeatureID]int
	active  *roaring.Bitmap
	dimmed  bool
}

// NewSelection creates a selection tracker painting through painter. A nil
// guard admits every request; a nil logger discards diagnostics.
func NewSelection(painter Painter, guard Guard, logger *log.Logger) *Selection {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Selection{
		painter: painter,
		guard:   guard,
		logger:  logger,
		counts:  make(map[pathway.FeatureID]int),
		active:  roaring.New(),
	}
}

// SelectFeature adds one selection reference to the feature. It reports
// false, with no state change, when the guard declines the request.
//
// The first selection into an otherwise-empty selection set switches the
// renderer's dimmed paint mode on when dim is true; later selections leave
// the mode untouched.
func (s *Selection) SelectFeature(id pathway.FeatureID, dim bool) bool {
	if s.guard != nil && !s.guard.CanSelect(id) {
		s.logger.Debug("selection declined", "feature", id)
		return false
	}
	wasEmpty := len(s.counts) == 0
	c := s.counts[id]
	if c == 0 {
		s.painter.SetFeatureState(id, render.State{render.StateSelected: true})
	}
	s.counts[id] = c + 1
	if wasEmpty && dim {
		s.dimmed = true
		s.painter.SetDimmed(true)
	}
	observability.State().OnSelectionChanged(len(s.counts))
	return true
}

// UnselectFeature releases one selection reference. The selected flag clears
// when the last reference goes; the dimmed paint mode clears when the whole
// selection set empties. Releasing a feature with no references is ignored.
func (s *Selection) UnselectFeature(id pathway.FeatureID) {
	c := s.counts[id]
	switch {
	case c == 1:
		delete(s.counts, id)
		s.painter.RemoveFeatureState(id, render.StateSelected)
	case c > 1:
		s.counts[id] = c - 1
	default:
		s.logger.Debug("unselect of feature with no selection", "feature", id)
		return
	}
	if len(s.counts) == 0 && s.dimmed {
		s.dimmed = false
		s.painter.SetDimmed(false)
	}
	observability.State().OnSelectionChanged(len(s.counts))
}

// UnselectAll clears the entire selection set unconditionally, without
// per-feature reference counting, and resets the dimmed paint mode. This is
// the bulk path used on background clicks and resets.
func (s *Selection) UnselectAll() {
	if len(s.counts) == 0 && !s.dimmed {
		return
	}
	ids := make([]pathway.FeatureID, 0, len(s.counts))
	for id := range s.counts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.painter.RemoveFeatureState(id, render.StateSelected)
	}
	clear(s.counts)
	if s.dimmed {
		s.dimmed = false
		s.painter.SetDimmed(false)
	}
	observability.State().OnSelectionChanged(0)
}

// ActivateFeature marks a feature active (hovered or related to the hovered
// feature). Activation is membership, not counted. It reports false when the
// guard declines the request or the feature is already active.
func (s *Selection) ActivateFeature(id pathway.FeatureID) bool {
	if s.guard != nil && !s.guard.CanActivate(id) {
		return false
	}
	if s.active.Contains(id) {
		return false
	}
	s.active.Add(id)
	s.painter.SetFeatureState(id, render.State{render.StateActive: true})
	return true
}

// ResetActiveFeatures clears every active flag and empties the active set.
// Called on every pointer move before the new hover set is applied.
func (s *Selection) ResetActiveFeatures() {
	s.active.Iterate(func(id uint32) bool {
		s.painter.RemoveFeatureState(id, render.StateActive)
		return true
	})
	s.active.Clear()
}

// SelectionCount returns the feature's selection reference count.
func (s *Selection) SelectionCount(id pathway.FeatureID) int { return s.counts[id] }

// Selected reports whether the feature has at least one selection reference.
func (s *Selection) Selected(id pathway.FeatureID) bool { return s.counts[id] > 0 }

// HasSelection reports whether any feature is selected.
func (s *Selection) HasSelection() bool { return len(s.counts) > 0 }

// SelectedFeatures returns the selected ids as a fresh bitmap owned by the
// caller.
func (s *Selection) SelectedFeatures() *roaring.Bitmap {
	out := roaring.New()
	for id := range s.counts {
		out.Add(id)
	}
	return out
}

// Active reports whether the feature is currently active.
func (s *Selection) Active(id pathway.FeatureID) bool { return s.active.Contains(id) }

// ActiveFeatures returns the active ids as a fresh bitmap owned by the
// caller.
func (s *Selection) ActiveFeatures() *roaring.Bitmap { return s.active.Clone() }

// Dimmed reports whether the selection has the dimmed paint mode on.
func (s *Selection) Dimmed() bool { return s.dimmed }
