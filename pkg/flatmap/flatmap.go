package flatmap

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/charmbracelet/log"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/facet"
	"github.com/anatomaps/flatmap/pkg/observability"
	"github.com/anatomaps/flatmap/pkg/pathway"
	"github.com/anatomaps/flatmap/pkg/render"
	"github.com/anatomaps/flatmap/pkg/state"
)

// Facet names, used in diagnostics.
const (
	facetPathType   = "pathtype"
	facetSystem     = "system"
	facetTaxon      = "taxon"
	facetCentreline = "centreline"
	facetModel      = "model"
)

// Map is the composition root of the state engine: one loaded flatmap with
// its path registry, annotation table, facets, and trackers. All public
// operations serialize behind one mutex, so independent UI controls can
// toggle concurrently without corrupting the reference counts.
//
// A Map built with [New] is ready immediately. One built with
// [NewFromSource] does no work until [Map.EnsureReady]; operations before
// that are no-ops.
type Map struct {
	mu sync.Mutex

	id     string
	source Source
	opts   Options
	logger *log.Logger

	initOnce sync.Once
	initErr  error
	ready    bool

	index       Index
	style       string
	contentHash string
	registry    *pathway.Registry
	table       *annotation.Table
	renderer    render.Renderer

	enablement *state.Enablement
	selection  *state.Selection

	typeFacet   *facet.Facet[pathway.PathType]
	systemFacet *facet.Facet[string]
	taxonFacet  *facet.Facet[string]
	centreFacet *facet.Facet[string]
	modelFacet  *facet.Facet[string]

	systems map[string]*System

	// invisible holds features no facet can re-enable, such as zero-path
	// centrelines outside centreline-style maps. Outside the count system.
	invisible *roaring.Bitmap

	// taxonReleased records, per enabled taxon, the features its restriction
	// actually released, so lifting it re-grants exactly those claims.
	taxonReleased map[string]*roaring.Bitmap

	sckan SCKANState

	watchers map[string]WatcherFunc
	eventFn  EventFunc
}

// New builds a map from an in-memory bundle and initializes it
// synchronously. The bundle must carry pathway and annotation data.
func New(bundle *Bundle, opts Options) (*Map, error) {
	if bundle == nil {
		return nil, errors.New(errors.ErrCodeMapInit, "nil bundle")
	}
	id := bundle.Index.ID
	if id == "" {
		id = "bundle"
	}
	m, err := newMap(singleSource{bundle: bundle}, id, opts)
	if err != nil {
		return nil, err
	}
	if err := m.EnsureReady(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// NewFromSource prepares a map that loads mapID from source on the first
// EnsureReady call.
func NewFromSource(source Source, mapID string, opts Options) (*Map, error) {
	if err := errors.ValidateMapID(mapID); err != nil {
		return nil, err
	}
	return newMap(source, mapID, opts)
}

func newMap(source Source, mapID string, opts Options) (*Map, error) {
	if source == nil {
		return nil, errors.New(errors.ErrCodeMapInit, "nil source")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Map{
		id:        mapID,
		source:    source,
		opts:      opts,
		logger:    logger.With("map", mapID),
		invisible:     roaring.New(),
		taxonReleased: make(map[string]*roaring.Bitmap),
		watchers:      make(map[string]WatcherFunc),
	}, nil
}

// EnsureReady loads the bundle and builds all engine state exactly once.
// Concurrent callers block until the first attempt finishes and share its
// result; a failed attempt is sticky, so retrying a load means building a
// new Map.
func (m *Map) EnsureReady(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.initialize(ctx)
	})
	return m.initErr
}

func (m *Map) initialize(ctx context.Context) error {
	start := time.Now()
	observability.Map().OnMapLoadStart(ctx, m.id)

	err := m.build(ctx)

	features := 0
	if err == nil {
		features = m.table.NumRecords()
	}
	observability.Map().OnMapLoadComplete(ctx, m.id, features, time.Since(start), err)
	if err != nil {
		return err
	}

	m.logger.Info("map ready",
		"style", m.style,
		"paths", m.registry.NumPaths(),
		"features", m.table.NumRecords(),
		"systems", len(m.systems))
	return nil
}

func (m *Map) build(ctx context.Context) error {
	bundle, err := m.source.Load(ctx, m.id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMapInit, err, "loading bundle for map %s", m.id)
	}
	if bundle == nil || bundle.Pathways == nil || bundle.Annotations == nil {
		return errors.New(errors.ErrCodeMapInit, "bundle for map %s is missing pathway or annotation data", m.id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.index = bundle.Index
	if m.index.ID == "" {
		m.index.ID = m.id
	}
	m.style = m.index.Style
	switch {
	case m.style == "":
		m.style = StyleAnatomical
	case !ValidStyles[m.style]:
		m.logger.Debug("unknown map style, treating as anatomical", "style", m.style)
		m.style = StyleAnatomical
	}

	m.contentHash = bundle.ContentHash()
	m.registry = pathway.NewRegistry(*bundle.Pathways)
	m.table = annotation.NewTable(bundle.Annotations)

	renderer := m.opts.Renderer
	if renderer == nil {
		off := render.NewOffscreen()
		off.SetHitTolerance(m.opts.HitTolerance)
		if len(bundle.Features) > 0 {
			if err := off.LoadGeoJSON(bundle.Features); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoding %s for map %s", featuresDocument, m.id)
			}
		}
		renderer = off
	}
	m.renderer = renderer

	m.enablement = state.NewEnablement(m.table, m.renderer, m.logger)
	m.selection = state.NewSelection(m.renderer, mapGuard{m}, m.logger)
	m.sckan = SCKANState(m.opts.SCKAN)

	m.buildFacets()
	m.applyInitialState()

	m.ready = true
	return nil
}

// buildFacets constructs the facet domains from registry and annotation
// data, with initial key states folded in from options and map style.
func (m *Map) buildFacets() {
	disabled := make(map[pathway.PathType]bool, len(m.opts.DisabledPathTypes))
	for _, name := range m.opts.DisabledPathTypes {
		t := pathway.PathType(name)
		if !pathway.KnownType(t) {
			// Aliases like "motor" normalize onto a catalogue type; truly
			// unknown names must not land on the catch-all bucket.
			if n := pathway.NormalizeType(name); n != pathway.PathTypeOther {
				t = n
			} else {
				m.logger.Debug("ignoring unknown disabled path type", "type", name)
				continue
			}
		}
		disabled[t] = true
	}

	m.typeFacet = facet.New[pathway.PathType](facetPathType)
	for _, t := range m.registry.UsedTypes() {
		if t == pathway.PathTypeCentreline && m.style == StyleCentreline {
			// Structural in centreline maps, not user-toggleable.
			continue
		}
		spec, _ := pathway.LookupType(t)
		m.typeFacet.Add(t, spec.Enabled && !disabled[t])
	}

	m.systems = make(map[string]*System, len(m.table.Systems()))
	m.systemFacet = facet.New[string](facetSystem)
	for _, sys := range deriveSystems(m.registry, m.table) {
		if _, dup := m.systems[sys.Name]; dup {
			m.logger.Debug("ignoring duplicate system record", "system", sys.Name)
			continue
		}
		m.systems[sys.Name] = sys
		m.systemFacet.Add(sys.Name, true)
	}

	m.taxonFacet = facet.New[string](facetTaxon)
	for _, taxon := range m.table.Taxons() {
		m.taxonFacet.Add(taxon, false)
	}

	m.centreFacet = facet.New[string](facetCentreline)
	for _, id := range m.registry.Centrelines() {
		m.centreFacet.Add(id, m.style == StyleCentreline)
	}

	m.modelFacet = facet.New[string](facetModel)
	for _, id := range m.registry.ConnectivityModels() {
		m.modelFacet.Add(id, true)
	}
}

// applyInitialState force-applies the facet defaults so renderer state
// matches logical state, then seeds system counts and provenance flags.
func (m *Map) applyInitialState() {
	// Path-type defaults fan out first, in legend order. Each enabled type
	// grants one counted claim, so a feature shared by several types keeps
	// one claim per type and survives a single type being switched off.
	for _, t := range m.typeFacet.Keys() {
		if !m.typeFacet.Enabled(t) {
			continue
		}
		features := m.registry.PathFeatures(m.registry.PathsOfType(t)...)
		m.enablement.EnableFeatures(features, true, false)
	}

	// Features no enabled type claims are force-hidden so renderer state
	// matches logical state without logging underflows.
	m.registry.AllFeatures().Iterate(func(id uint32) bool {
		if m.enablement.Count(id) == 0 {
			m.enablement.EnableFeature(id, false, true)
		}
		return true
	})

	if m.style == StyleCentreline {
		// Centreline paths and the centreline features themselves are
		// structural in centreline maps.
		features := m.registry.PathFeatures(m.registry.PathsOfType(pathway.PathTypeCentreline)...)
		m.enablement.EnableFeatures(features, true, true)
		for _, modelID := range m.table.CentrelineModels() {
			if id, ok := m.table.CentrelineFeature(modelID); ok {
				m.enablement.EnableFeature(id, true, true)
			}
		}
	} else {
		// Centreline features start hidden; ones with no associated paths
		// can never be re-enabled and are flagged invisible outside the
		// reference-count system.
		for _, modelID := range m.table.CentrelineModels() {
			id, ok := m.table.CentrelineFeature(modelID)
			if !ok {
				continue
			}
			if len(m.registry.PathsByCentreline(modelID)) == 0 {
				m.invisible.Add(id)
				m.renderer.SetFeatureState(id, render.State{render.StateInvisible: true})
				continue
			}
			m.enablement.EnableFeature(id, false, true)
		}
	}

	// Seed system counts: membership bookkeeping only. Path visibility is
	// already governed by the type fan-out above.
	for _, name := range m.systemFacet.Keys() {
		for _, pathID := range m.systems[name].PathIDs {
			if p, ok := m.registry.Path(pathID); ok {
				p.SetSystemCount(p.SystemCount() + 1)
			}
		}
	}

	// Provenance flag for features carrying dataset or source annotations.
	for _, id := range m.table.FeatureIDs() {
		rec, _ := m.table.Record(id)
		if rec.Dataset != "" || rec.Source != "" {
			m.renderer.SetFeatureState(id, render.State{render.StateAnnotated: true})
		}
	}
}

// =============================================================================
// Selection guard
// =============================================================================

// mapGuard adapts the map's visibility rules to the state.Guard interface.
// Guard methods run while the map mutex is held by the calling operation.
type mapGuard struct{ m *Map }

func (g mapGuard) CanSelect(id pathway.FeatureID) bool   { return g.m.canSelectLocked(id) }
func (g mapGuard) CanActivate(id pathway.FeatureID) bool { return g.m.canActivateLocked(id) }

func (m *Map) canSelectLocked(id pathway.FeatureID) bool {
	if !m.enablement.Enabled(id) || m.invisible.Contains(id) {
		return false
	}
	return m.sckanAdmitsLocked(id)
}

func (m *Map) canActivateLocked(id pathway.FeatureID) bool {
	return m.enablement.Enabled(id) && !m.invisible.Contains(id)
}

func (m *Map) sckanAdmitsLocked(id pathway.FeatureID) bool {
	rec, ok := m.table.Record(id)
	if !ok {
		return true
	}
	validity := rec.SCKANValidity()
	switch m.sckan {
	case SCKANValid:
		return validity != annotation.ValidityInvalid
	case SCKANInvalid:
		return validity != annotation.ValidityValid
	case SCKANNone:
		return validity == annotation.ValidityUnknown
	default:
		return true
	}
}

// =============================================================================
// Feature and selection operations
// =============================================================================

// EnableFeature adds or releases one visibility claim on a feature. With
// force the claim count is pinned to one or zero and renderer state is
// re-applied unconditionally. Unknown feature ids are ignored.
func (m *Map) EnableFeature(id pathway.FeatureID, enabled, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	m.enablement.EnableFeature(id, enabled, force)
}

// EnableFeatureWithChildren applies EnableFeature to the feature and,
// depth-first, to its containment children.
func (m *Map) EnableFeatureWithChildren(id pathway.FeatureID, enabled, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	m.enablement.EnableFeatureWithChildren(id, enabled, force)
}

// SelectFeatures replaces the current selection with the given features and
// returns the ids actually selected. Hidden features and features whose
// SCKAN validity conflicts with the current state are declined.
func (m *Map) SelectFeatures(ids ...pathway.FeatureID) []pathway.FeatureID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	m.selection.UnselectAll()
	var accepted []pathway.FeatureID
	for _, id := range ids {
		if m.selection.SelectFeature(id, m.opts.ShouldDim()) {
			accepted = append(accepted, id)
		}
	}
	return accepted
}

// UnselectFeatures clears the entire selection and resets the dimmed paint
// mode.
func (m *Map) UnselectFeatures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return
	}
	m.selection.UnselectAll()
}

// SetSCKANState switches which features are selectable by SCKAN validity.
func (m *Map) SetSCKANState(s SCKANState) error {
	if err := ValidateSCKANState(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.sckan = s
	m.mu.Unlock()
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// ID returns the map id the bundle was loaded under.
func (m *Map) ID() string { return m.id }

// Index returns the bundle descriptor.
func (m *Map) Index() Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Style returns the effective map style.
func (m *Map) Style() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.style
}

// ContentHash returns the loaded bundle's content hash, or "" before the
// map is ready. Export pipelines use it to key cache entries.
func (m *Map) ContentHash() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentHash
}

// Registry returns the path registry, or nil before the map is ready. The
// registry is read-only to callers; the map maintains its system reference
// counts under the map mutex.
func (m *Map) Registry() *pathway.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.registry
}

// Annotations returns the annotation table, or nil before the map is ready.
func (m *Map) Annotations() *annotation.Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.table
}

// SCKANState returns the current SCKAN visibility state.
func (m *Map) SCKANState() SCKANState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sckan
}

// NumPaths returns the number of paths in the registry.
func (m *Map) NumPaths() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return 0
	}
	return m.registry.NumPaths()
}

// NumFeatures returns the number of annotated features.
func (m *Map) NumFeatures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return 0
	}
	return m.table.NumRecords()
}

// FeatureEnabled reports whether the feature is currently visible.
func (m *Map) FeatureEnabled(id pathway.FeatureID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.enablement.Enabled(id)
}

// FeatureSelected reports whether the feature is in the selection set.
func (m *Map) FeatureSelected(id pathway.FeatureID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.selection.Selected(id)
}

// SelectedFeatures returns the selected feature ids in ascending order.
func (m *Map) SelectedFeatures() []pathway.FeatureID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.selection.SelectedFeatures().ToArray()
}

// ActiveFeatures returns the active (hover) feature ids in ascending order.
func (m *Map) ActiveFeatures() []pathway.FeatureID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}
	return m.selection.ActiveFeatures().ToArray()
}

// Dimmed reports whether the dimmed paint mode is on.
func (m *Map) Dimmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false
	}
	return m.selection.Dimmed()
}
