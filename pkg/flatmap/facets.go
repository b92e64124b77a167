package flatmap

import (
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/anatomaps/flatmap/pkg/pathway"
)

// =============================================================================
// Path type facet
// =============================================================================

// PathTypeState is one legend row: catalogue metadata plus current facet
// state.
type PathTypeState struct {
	Type    pathway.PathType `json:"type"`
	Label   string           `json:"label"`
	Colour  string           `json:"colour"`
	Dashed  bool             `json:"dashed,omitempty"`
	Enabled bool             `json:"enabled"`
}

// PathTypes returns the toggleable path types in legend order with their
// current enabled state.
func (m *Map) PathTypes() []PathTypeState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	out := make([]PathTypeState, 0, m.typeFacet.Len())
	for _, t := range m.typeFacet.Keys() {
		spec, _ := pathway.LookupType(t)
		out = append(out, PathTypeState{
			Type:    t,
			Label:   spec.Label,
			Colour:  spec.Colour,
			Dashed:  spec.Dashed,
			Enabled: m.typeFacet.Enabled(t),
		})
	}
	return out
}

// PathTypeEnabled reports whether paths of the given type are currently
// shown. Unknown type names report false. Centreline paths in a
// centreline-style map always report true.
func (m *Map) PathTypeEnabled(pathType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	if m.style == StyleCentreline && pathway.PathType(pathType) == pathway.PathTypeCentreline {
		return true
	}
	t, ok := m.resolvePathTypeLocked(pathType)
	if !ok {
		return false
	}
	return m.typeFacet.Enabled(t)
}

// EnablePathsByType shows or hides every path of the given type. Unknown
// type names and no-op toggles are ignored.
func (m *Map) EnablePathsByType(pathType string, enabled bool) {
	m.mu.Lock()
	change, ok := m.enablePathsByTypeLocked(pathType, enabled)
	watchers := m.watchersLocked()
	m.mu.Unlock()
	if ok {
		notify(watchers, change)
	}
}

func (m *Map) enablePathsByTypeLocked(name string, enabled bool) (Change, bool) {
	if !m.ready {
		return Change{}, false
	}
	t, ok := m.resolvePathTypeLocked(name)
	if !ok {
		m.logger.Debug("ignoring unknown path type", "type", name)
		return Change{}, false
	}
	if len(m.typeFacet.Enable([]pathway.PathType{t}, enabled, false)) == 0 {
		return Change{}, false
	}
	features := m.registry.PathFeatures(m.registry.PathsOfType(t)...)
	m.enablement.EnableFeatures(features, enabled, false)
	return Change{PathType: string(t)}, true
}

// resolvePathTypeLocked maps a declared name onto a toggleable facet key.
// Aliases like "motor" normalize onto a catalogue type; unknown names stay
// unknown rather than landing on the catch-all bucket.
func (m *Map) resolvePathTypeLocked(name string) (pathway.PathType, bool) {
	t := pathway.PathType(name)
	if m.typeFacet.Known(t) {
		return t, true
	}
	if n := pathway.NormalizeType(name); n != pathway.PathTypeOther && m.typeFacet.Known(n) {
		return n, true
	}
	return "", false
}

// =============================================================================
// System facet
// =============================================================================

// Systems returns the system groupings sorted by name with their current
// enabled state.
func (m *Map) Systems() []System {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	out := make([]System, 0, m.systemFacet.Len())
	for _, name := range m.systemFacet.Keys() {
		sys := *m.systems[name]
		sys.Enabled = m.systemFacet.Enabled(name)
		sys.PathIDs = slices.Clone(sys.PathIDs)
		out = append(out, sys)
	}
	return out
}

// SystemEnabled reports whether the named system is enabled. Unknown names
// report false.
func (m *Map) SystemEnabled(system string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.systemFacet.Enabled(system)
}

// EnablePathsBySystem shows or hides the paths grouped under a system.
// Renderer effects are gated on each path's type facet so a disabled legend
// entry is not resurrected; membership bookkeeping updates regardless.
// Force pins each path's membership count and re-applies renderer state.
// Unknown systems and no-op toggles are ignored.
func (m *Map) EnablePathsBySystem(system string, enabled, force bool) {
	m.mu.Lock()
	change, ok := m.enablePathsBySystemLocked(system, enabled, force)
	watchers := m.watchersLocked()
	m.mu.Unlock()
	if ok {
		notify(watchers, change)
	}
}

func (m *Map) enablePathsBySystemLocked(system string, enabled, force bool) (Change, bool) {
	if !m.ready {
		return Change{}, false
	}
	sys, ok := m.systems[system]
	if !ok {
		m.logger.Debug("ignoring unknown system", "system", system)
		return Change{}, false
	}
	if len(m.systemFacet.Enable([]string{system}, enabled, force)) == 0 {
		return Change{}, false
	}
	for _, pathID := range sys.PathIDs {
		if p, ok := m.registry.Path(pathID); ok {
			m.applySystemToPathLocked(p, enabled, force)
		}
	}
	return Change{System: system}, true
}

// applySystemToPathLocked adjusts one path's system membership count and
// fans feature claims at the count boundaries. A path claimed by several
// enabled systems stays visible until the last one releases it.
func (m *Map) applySystemToPathLocked(p *pathway.Path, enabled, force bool) {
	typeOn := m.pathTypeOnLocked(p.Type)
	count := p.SystemCount()
	switch {
	case force:
		if enabled {
			p.SetSystemCount(1)
		} else {
			p.SetSystemCount(0)
		}
		if typeOn {
			m.enablement.EnableFeatures(p.Features(), enabled, true)
		}
	case enabled:
		if count == 0 && typeOn {
			m.enablement.EnableFeatures(p.Features(), true, false)
		}
		p.SetSystemCount(count + 1)
	default:
		if count == 1 && typeOn {
			m.enablement.EnableFeatures(p.Features(), false, false)
		}
		p.SetSystemCount(count - 1)
	}
}

// pathTypeOnLocked reports whether the type facet currently shows paths of
// type t. Centreline paths in a centreline-style map are always on.
func (m *Map) pathTypeOnLocked(t pathway.PathType) bool {
	if m.style == StyleCentreline && t == pathway.PathTypeCentreline {
		return true
	}
	return m.typeFacet.Enabled(t)
}

// =============================================================================
// Taxon facet
// =============================================================================

// Taxons returns the taxon ids present in the annotation data.
func (m *Map) Taxons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.taxonFacet.Keys()
}

// TaxonEnabled reports whether connectivity for the taxon is shown. Unknown
// taxon ids report false.
func (m *Map) TaxonEnabled(taxonID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.taxonFacet.Enabled(taxonID)
}

// EnableConnectivityByTaxon restricts the view to connectivity observed in
// the given taxons. Enabling fans one visibility claim over each taxon's
// member features and releases one from every other path feature still
// visible, so the rest of the map drops out unless another facet keeps it
// claimed. Disabling re-grants exactly the claims the restriction released;
// features some other facet already hid stay hidden. Unknown ids and no-op
// toggles are filtered out before any fan-out, which keeps repeat calls
// balanced.
func (m *Map) EnableConnectivityByTaxon(taxonIDs []string, enabled bool) {
	m.mu.Lock()
	change, ok := m.enableByTaxonLocked(taxonIDs, enabled)
	watchers := m.watchersLocked()
	m.mu.Unlock()
	if ok {
		notify(watchers, change)
	}
}

func (m *Map) enableByTaxonLocked(taxonIDs []string, enabled bool) (Change, bool) {
	if !m.ready {
		return Change{}, false
	}
	changed := m.taxonFacet.Enable(taxonIDs, enabled, false)
	if len(changed) == 0 {
		return Change{}, false
	}

	for _, taxon := range changed {
		members := m.table.FeaturesByTaxon(taxon)
		if enabled {
			// Release only features currently visible; recording them keeps
			// the later re-grant exact, so features another facet hid before
			// the restriction never pick up a spurious claim when it lifts.
			rest := m.enablement.EnabledFeatures()
			rest.And(m.registry.AllFeatures())
			rest.AndNot(members)
			m.enablement.EnableFeatures(members, true, false)
			m.enablement.EnableFeatures(rest, false, false)
			m.taxonReleased[taxon] = rest
		} else {
			m.enablement.EnableFeatures(members, false, false)
			if rest := m.taxonReleased[taxon]; rest != nil {
				m.enablement.EnableFeatures(rest, true, false)
				delete(m.taxonReleased, taxon)
			}
		}
	}
	return Change{Taxons: changed}, true
}

// =============================================================================
// Centreline facet
// =============================================================================

// Centrelines returns the centreline model ids known to the registry.
func (m *Map) Centrelines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.centreFacet.Keys()
}

// CentrelineEnabled reports whether the centreline is shown. Unknown ids
// report false.
func (m *Map) CentrelineEnabled(centrelineID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.centreFacet.Enabled(centrelineID)
}

// EnableCentrelines shows or hides nerve centrelines together with the
// paths routed along them. Unknown ids and no-op toggles are ignored.
func (m *Map) EnableCentrelines(centrelineIDs []string, enabled bool) {
	m.mu.Lock()
	change, ok := m.enableCentrelinesLocked(centrelineIDs, enabled)
	watchers := m.watchersLocked()
	m.mu.Unlock()
	if ok {
		notify(watchers, change)
	}
}

func (m *Map) enableCentrelinesLocked(ids []string, enabled bool) (Change, bool) {
	if !m.ready {
		return Change{}, false
	}
	changed := m.centreFacet.Enable(ids, enabled, false)
	if len(changed) == 0 {
		return Change{}, false
	}

	features := roaring.New()
	for _, id := range changed {
		features.Or(m.registry.PathFeatures(m.registry.PathsByCentreline(id)...))
		if own, ok := m.table.CentrelineFeature(id); ok {
			features.Add(own)
		}
	}
	m.enablement.EnableFeatures(features, enabled, false)
	return Change{Centrelines: changed}, true
}

// =============================================================================
// Connectivity model facet
// =============================================================================

// ConnectivityModels returns the knowledge-source model ids with paths in
// the registry.
func (m *Map) ConnectivityModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.modelFacet.Keys()
}

// ModelEnabled reports whether paths from the knowledge-source model are
// shown. Unknown ids report false.
func (m *Map) ModelEnabled(modelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.modelFacet.Enabled(modelID)
}

// EnableConnectivityByModel shows or hides the paths derived from one
// knowledge-source model. Unknown ids and no-op toggles are ignored.
func (m *Map) EnableConnectivityByModel(modelID string, enabled bool) {
	m.mu.Lock()
	change, ok := m.enableByModelLocked(modelID, enabled)
	watchers := m.watchersLocked()
	m.mu.Unlock()
	if ok {
		notify(watchers, change)
	}
}

func (m *Map) enableByModelLocked(modelID string, enabled bool) (Change, bool) {
	if !m.ready {
		return Change{}, false
	}
	if !m.modelFacet.Known(modelID) {
		m.logger.Debug("ignoring unknown connectivity model", "model", modelID)
		return Change{}, false
	}
	if len(m.modelFacet.Enable([]string{modelID}, enabled, false)) == 0 {
		return Change{}, false
	}
	features := m.registry.PathFeatures(m.registry.ModelPaths(modelID)...)
	m.enablement.EnableFeatures(features, enabled, false)
	return Change{Model: modelID}, true
}
