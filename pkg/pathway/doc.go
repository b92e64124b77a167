// Package pathway parses a flatmap's pathway description into the lookup
// indices the visibility engine is built on.
//
// # Overview
//
// A flatmap bundle ships one pathways document per map: every neuron path
// with the line, nerve, and node feature ids it touches, a node-to-paths
// index, a declared-type-to-paths index, and optional connectivity models.
// [NewRegistry] turns that document into a [Registry] of forward and inverted
// indices that downstream facets and trackers query but never rebuild.
//
// The registry is a pure data structure. It holds no visibility state; the
// only mutable field is each path's system reference count, maintained by
// system-level enabling in the flatmap package.
//
// # Basic Usage
//
// Decode the bundle document with [Parse] and build the registry once per
// loaded map:
//
//	doc, err := pathway.Parse(data)
//	if err != nil {
//		return err
//	}
//	reg := pathway.NewRegistry(doc)
//	features := reg.PathFeatures(reg.PathsOfType(pathway.PathTypeSensory)...)
//
// Feature-id sets are roaring bitmaps throughout: per-path membership, the
// fan-out union [Registry.PathFeatures], and [Registry.AllFeatures] all
// operate on bitmaps rather than slices.
//
// # Path Types
//
// Every path belongs to exactly one [PathType] from the fixed catalogue
// (cns, para-pre, sensory, ...). Declared types outside the catalogue are
// tolerated: [NormalizeType] buckets them into [PathTypeOther], and
// [TypeEnabledByDefault] reports false for them so unrecognized classes stay
// hidden until a user opts in. The catalogue also carries the legend label,
// colour, and dash style per type.
//
// # Concurrency
//
// Registry instances are not safe for concurrent use. The flatmap package
// serializes all access behind its map-level mutex.
package pathway
