// Package pkg provides the core libraries for flatmap state management.
//
// # Overview
//
// Flatmap keeps track of what an anatomical flatmap viewer is showing:
// neuron paths grouped by type, system, taxon, and centreline, with
// reference-counted visibility so overlapping groups compose correctly. The
// pkg directory is organized into four main areas:
//
//  1. [flatmap] - The state engine (map lifecycle, facets, interaction)
//  2. Domain data - [pathway] registry, [annotation] table, [facet] engine,
//     [state] trackers, [render] feature state
//  3. [export] - Connectivity graph export via Graphviz
//  4. Infrastructure - [cache], [httputil], [errors], [observability]
//
// # Architecture
//
// The typical data flow through flatmap:
//
//	Bundle source (directory, HTTP map server, in-memory)
//	         ↓
//	    [pathway] package (path registry + feature bitmaps)
//	    [annotation] package (records, taxons, systems)
//	         ↓
//	    [flatmap] package (facets + reference-counted state)
//	         ↓
//	    [render] package (renderer feature state side effects)
//
// # Quick Start
//
// Load a map and toggle state:
//
//	import (
//	    "context"
//	    "github.com/anatomaps/flatmap/pkg/flatmap"
//	)
//
//	// 1. Point a source at bundle data
//	source := flatmap.NewDirSource("./maps")
//
//	// 2. Build the map and initialize it
//	m, _ := flatmap.NewFromSource(source, "whole-rat", flatmap.Options{})
//	_ = m.EnsureReady(context.Background())
//
//	// 3. Drive viewer state
//	m.EnablePathsByType("sympathetic-pre", false)
//	m.SelectFeatures(1203, 1204)
//
// # Main Packages
//
// ## State Engine
//
// [flatmap] - Map lifecycle (sources, bundles, lazy initialization), the
// five visibility facets, selection with SCKAN guard rules, pointer
// interaction, and watcher notifications.
//
// ## Domain Data
//
// [pathway] - Path registry built from bundle pathway documents: path type
// catalogue, per-path feature bitmaps, centreline and model lookups.
//
// [annotation] - Annotation table keyed by feature id: records, containment
// children, taxon bitmaps, system records, centreline models.
//
// [facet] - Generic named visibility dimensions with changed-key reporting.
//
// [state] - Reference-counted enablement tracker and guarded
// selection/activation tracker; both push feature state to a renderer.
//
// [render] - Renderer interfaces, feature state keys, and the offscreen
// renderer used for headless operation and spatial queries.
//
// ## Export
//
// [export] - Connectivity graph rendering to DOT, SVG, and PNG using
// Graphviz, with content-addressed stage caching.
//
// ## Infrastructure
//
// [httputil] - HTTP client with retry/backoff and a JSON file cache for
// fetched bundle documents.
//
// [cache] - File and null caches plus key derivation for export pipeline
// stages.
//
// [errors] - Structured error codes shared across packages and surfaced at
// API boundaries.
//
// [observability] - Pluggable hook points for map loads, state changes,
// cache traffic, and HTTP requests.
//
// [buildinfo] - Version metadata stamped at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/flatmap/...   # Specific package
//	go test -run Example        # Examples only
//
// [flatmap]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/flatmap
// [pathway]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/pathway
// [annotation]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/annotation
// [facet]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/facet
// [state]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/state
// [render]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/render
// [export]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/export
// [cache]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/anatomaps/flatmap/pkg/buildinfo
package pkg
