package flatmap

import (
	"slices"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// System is a functional-connectivity grouping of paths, derived from an
// annotation record whose fc-class marks it as a system. Its paths are every
// path touching a feature in the record's containment subtree.
type System struct {
	Name    string   `json:"name"`
	Colour  string   `json:"colour,omitempty"`
	Enabled bool     `json:"enabled"`
	PathIDs []string `json:"pathIds,omitempty"`
}

// deriveSystems expands each system record's containment subtree and
// collects the paths in it. Records without a name are skipped; results
// follow the table's by-name order.
func deriveSystems(registry *pathway.Registry, table *annotation.Table) []*System {
	var out []*System
	for _, rec := range table.Systems() {
		if rec.Name == "" {
			continue
		}
		out = append(out, &System{
			Name:    rec.Name,
			Colour:  rec.Colour,
			Enabled: true,
			PathIDs: systemPaths(registry, table, rec),
		})
	}
	return out
}

// systemPaths walks the record's containment subtree with a visited set and
// unions the paths at every reached feature.
func systemPaths(registry *pathway.Registry, table *annotation.Table, rec *annotation.Record) []string {
	seen := make(map[pathway.FeatureID]bool)
	pathSet := make(map[string]bool)

	var walk func(id pathway.FeatureID)
	walk = func(id pathway.FeatureID) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, pathID := range registry.PathsAtFeature(id) {
			pathSet[pathID] = true
		}
		for _, child := range table.Children(id) {
			walk(child)
		}
	}
	walk(rec.FeatureID)

	pathIDs := make([]string, 0, len(pathSet))
	for pathID := range pathSet {
		pathIDs = append(pathIDs, pathID)
	}
	slices.Sort(pathIDs)
	return pathIDs
}
