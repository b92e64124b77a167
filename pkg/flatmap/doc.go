// Package flatmap implements the state engine for anatomical flatmap
// viewers: which features of a loaded map are visible, selected, or
// highlighted, and why.
//
// # Overview
//
// A flatmap bundle carries three documents: pathway data (neuron paths with
// their line, nerve, and node features), annotation records (names, models,
// taxons, provenance), and optional GeoJSON feature geometry. [Map] composes
// them into one engine:
//
//	Bundle (index + pathways + annotations + features)
//	         ↓
//	    [pathway.Registry] (paths, types, feature bitmaps)
//	    [annotation.Table] (records, taxons, systems, centrelines)
//	         ↓
//	    facets (path type, system, taxon, centreline, model)
//	         ↓
//	    [state.Enablement] (reference-counted visibility)
//	    [state.Selection]  (selection + hover with guard rules)
//	         ↓
//	    [render.Renderer] (feature state side effects)
//
// Every facet toggle routes through the same reference counts: a feature
// shared by a sympathetic path and a sensory path stays visible until both
// legend entries are off. Renderer side effects happen only when a count
// crosses zero, so toggles are cheap and order-independent.
//
// # Quick Start
//
// Load a bundle from a directory and flip some state:
//
//	source := flatmap.NewDirSource("./maps")
//	m, err := flatmap.NewFromSource(source, "whole-rat", flatmap.Options{})
//	if err != nil {
//	    return err
//	}
//	if err := m.EnsureReady(ctx); err != nil {
//	    return err
//	}
//
//	m.EnablePathsByType("sympathetic-pre", false) // hide a legend entry
//	m.EnablePathsBySystem("Cardiovascular system", true, false)
//	selected := m.SelectFeatures(1203, 1204)
//
// Maps built with [New] from an in-memory [Bundle] are ready immediately.
// Without an explicit renderer in [Options], state lands in an offscreen
// renderer that also answers spatial queries for [Map.OnClick] and
// [Map.OnPointerMove].
//
// All operations on a ready map are safe for concurrent use. Watcher and
// event callbacks run outside the map's mutex.
package flatmap
