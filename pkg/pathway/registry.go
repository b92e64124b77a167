package pathway

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/RoaringBitmap/roaring"
)

// FeatureID identifies a renderable map feature (polygon, line, or point).
// Feature ids are stable within one loaded map instance and index directly
// into roaring bitmaps, so the type is an alias rather than a distinct type.
type FeatureID = uint32

// Document is the decoded pathway description for one loaded map, as served
// in the map bundle's pathways document. Field names follow the upstream
// JSON keys.
type Document struct {
	Paths     map[string]PathRecord `json:"paths"`
	NodePaths map[string][]string   `json:"node-paths"`
	TypePaths map[string][]string   `json:"type-paths"`
	Models    []ModelRecord         `json:"models,omitempty"`
}

// PathRecord is the raw per-path entry of a pathway document.
type PathRecord struct {
	Lines       []FeatureID `json:"lines"`
	Nerves      []FeatureID `json:"nerves"`
	Nodes       []FeatureID `json:"nodes"`
	Models      string      `json:"models,omitempty"`
	Centrelines []string    `json:"centrelines,omitempty"`
}

// ModelRecord associates a connectivity model with the paths derived from it.
type ModelRecord struct {
	ID    string   `json:"id"`
	Paths []string `json:"paths"`
}

// Parse decodes a pathway JSON document. A document without a "paths" key is
// valid and produces an empty registry.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse pathways document: %w", err)
	}
	return doc, nil
}

// Read decodes a pathway JSON document from r.
func Read(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read pathways document: %w", err)
	}
	return Parse(data)
}

// Path is one neuron path (or vascular segment) with its feature membership.
// All fields are immutable after registry construction except the system
// reference count, which system-level enabling maintains.
//
// The bitmap fields are owned by the registry and must not be modified.
type Path struct {
	ID          string
	Type        PathType
	Lines       *roaring.Bitmap
	Nerves      *roaring.Bitmap
	Nodes       *roaring.Bitmap
	Model       string // knowledge-source model URI, optional
	Centrelines []string

	systemCount int
}

// Features returns the union of the path's line, nerve, and node feature ids
// as a fresh bitmap owned by the caller.
func (p *Path) Features() *roaring.Bitmap {
	out := roaring.New()
	out.Or(p.Lines)
	out.Or(p.Nerves)
	out.Or(p.Nodes)
	return out
}

// SystemCount returns the number of enabled systems currently claiming the
// path. Zero means no system is keeping the path visible.
func (p *Path) SystemCount() int { return p.systemCount }

// SetSystemCount sets the system reference count, clamping negative values
// to zero.
func (p *Path) SetSystemCount(n int) {
	if n < 0 {
		n = 0
	}
	p.systemCount = n
}

// Registry holds the lookup indices derived from one map's pathway document:
// forward line/nerve/node membership per path, the inverted feature-to-paths
// indices, the per-type buckets, and centreline/connectivity-model
// associations. Everything except per-path system counts is immutable after
// construction.
//
// Registry is not safe for concurrent use without external synchronization.
type Registry struct {
	paths             map[string]*Path
	order             []string // path ids, sorted
	pathsByLine       map[FeatureID][]string
	pathsByNerve      map[FeatureID][]string
	pathsByNode       map[FeatureID][]string
	pathsByType       map[PathType][]string
	pathsByCentreline map[string][]string
	centrelines       []string // centreline ids, sorted
	modelPaths        map[string][]string
	models            []string // connectivity model ids, sorted
}

// NewRegistry builds the path registry from a decoded pathway document.
// Unknown declared path types bucket into [PathTypeOther]; path ids referenced
// by indices but absent from the paths table are dropped. Construction never
// fails: a document with no paths yields an empty registry.
func NewRegistry(doc Document) *Registry {
	r := &Registry{
		paths:             make(map[string]*Path, len(doc.Paths)),
		pathsByLine:       make(map[FeatureID][]string),
		pathsByNerve:      make(map[FeatureID][]string),
		pathsByNode:       make(map[FeatureID][]string),
		pathsByType:       make(map[PathType][]string),
		pathsByCentreline: make(map[string][]string),
		modelPaths:        make(map[string][]string),
	}

	for id, rec := range doc.Paths {
		r.paths[id] = &Path{
			ID:          id,
			Type:        PathTypeOther,
			Lines:       roaring.BitmapOf(rec.Lines...),
			Nerves:      roaring.BitmapOf(rec.Nerves...),
			Nodes:       roaring.BitmapOf(rec.Nodes...),
			Model:       rec.Models,
			Centrelines: slices.Clone(rec.Centrelines),
		}
		r.order = append(r.order, id)
	}
	slices.Sort(r.order)

	// Assign declared types. Anything outside the catalogue lands in the
	// catch-all bucket via NormalizeType.
	for declared, pathIDs := range doc.TypePaths {
		t := NormalizeType(declared)
		for _, id := range pathIDs {
			if p, ok := r.paths[id]; ok {
				p.Type = t
			}
		}
	}

	// Indices are built in sorted path order so every value slice comes out
	// sorted without a second pass.
	for _, id := range r.order {
		p := r.paths[id]
		r.pathsByType[p.Type] = append(r.pathsByType[p.Type], id)
		invert(r.pathsByLine, p.Lines, id)
		invert(r.pathsByNerve, p.Nerves, id)
		for _, c := range p.Centrelines {
			if !slices.Contains(r.pathsByCentreline[c], id) {
				r.pathsByCentreline[c] = append(r.pathsByCentreline[c], id)
			}
		}
	}
	for c := range r.pathsByCentreline {
		r.centrelines = append(r.centrelines, c)
	}
	slices.Sort(r.centrelines)

	for node, pathIDs := range doc.NodePaths {
		feature, err := strconv.ParseUint(node, 10, 32)
		if err != nil {
			continue
		}
		for _, id := range pathIDs {
			if _, ok := r.paths[id]; !ok {
				continue
			}
			key := FeatureID(feature)
			if !slices.Contains(r.pathsByNode[key], id) {
				r.pathsByNode[key] = append(r.pathsByNode[key], id)
			}
		}
	}
	for _, ids := range r.pathsByNode {
		slices.Sort(ids)
	}

	for _, m := range doc.Models {
		if m.ID == "" {
			continue
		}
		var known []string
		for _, id := range m.Paths {
			if _, ok := r.paths[id]; ok {
				known = append(known, id)
			}
		}
		slices.Sort(known)
		r.modelPaths[m.ID] = known
		r.models = append(r.models, m.ID)
	}
	slices.Sort(r.models)

	return r
}

// invert appends pathID to the index entry of every feature in the bitmap.
func invert(index map[FeatureID][]string, features *roaring.Bitmap, pathID string) {
	features.Iterate(func(f uint32) bool {
		index[f] = append(index[f], pathID)
		return true
	})
}

// NumPaths returns the number of paths in the registry.
func (r *Registry) NumPaths() int { return len(r.order) }

// PathIDs returns all path ids in sorted order.
func (r *Registry) PathIDs() []string { return slices.Clone(r.order) }

// Path returns the path with the given id.
func (r *Registry) Path(id string) (*Path, bool) {
	p, ok := r.paths[id]
	return p, ok
}

// PathsOfType returns the sorted path ids bucketed under the given catalogue
// type. Declared types outside the catalogue were bucketed into
// [PathTypeOther] at construction.
func (r *Registry) PathsOfType(t PathType) []string {
	return slices.Clone(r.pathsByType[t])
}

// UsedTypes returns the catalogue types that have at least one path, in
// legend order.
func (r *Registry) UsedTypes() []PathType {
	var used []PathType
	for _, spec := range typeCatalogue {
		if len(r.pathsByType[spec.Type]) > 0 {
			used = append(used, spec.Type)
		}
	}
	return used
}

// PathsByLine returns the sorted ids of paths whose line set contains the
// feature.
func (r *Registry) PathsByLine(feature FeatureID) []string {
	return slices.Clone(r.pathsByLine[feature])
}

// PathsByNerve returns the sorted ids of paths whose nerve set contains the
// feature.
func (r *Registry) PathsByNerve(feature FeatureID) []string {
	return slices.Clone(r.pathsByNerve[feature])
}

// PathsByNode returns the sorted ids of paths passing through the node
// feature, per the document's node-paths index.
func (r *Registry) PathsByNode(feature FeatureID) []string {
	return slices.Clone(r.pathsByNode[feature])
}

// PathsAtFeature returns the sorted ids of paths touching the feature as a
// line, nerve, or node. Used by interaction handling to resolve a picked
// feature to the paths it participates in.
func (r *Registry) PathsAtFeature(feature FeatureID) []string {
	var out []string
	for _, ids := range [][]string{
		r.pathsByLine[feature],
		r.pathsByNerve[feature],
		r.pathsByNode[feature],
	} {
		for _, id := range ids {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	slices.Sort(out)
	return out
}

// PathsByCentreline returns the sorted ids of paths associated with the
// centreline. The result is empty for centrelines no path references, which
// is the condition the flatmap package uses to mark a centreline permanently
// invisible in non-centreline map styles.
func (r *Registry) PathsByCentreline(centrelineID string) []string {
	return slices.Clone(r.pathsByCentreline[centrelineID])
}

// Centrelines returns the sorted centreline ids referenced by at least one
// path.
func (r *Registry) Centrelines() []string { return slices.Clone(r.centrelines) }

// ConnectivityModels returns the sorted connectivity model ids from the
// document's models list.
func (r *Registry) ConnectivityModels() []string { return slices.Clone(r.models) }

// ModelPaths returns the sorted ids of paths derived from the connectivity
// model.
func (r *Registry) ModelPaths(modelID string) []string {
	return slices.Clone(r.modelPaths[modelID])
}

// PathFeatures returns the union of line, nerve, and node feature ids across
// the given paths as a fresh bitmap owned by the caller. Unknown path ids are
// ignored.
func (r *Registry) PathFeatures(pathIDs ...string) *roaring.Bitmap {
	out := roaring.New()
	for _, id := range pathIDs {
		p, ok := r.paths[id]
		if !ok {
			continue
		}
		out.Or(p.Lines)
		out.Or(p.Nerves)
		out.Or(p.Nodes)
	}
	return out
}

// AllFeatures returns the union of every path's feature ids as a fresh
// bitmap owned by the caller.
func (r *Registry) AllFeatures() *roaring.Bitmap {
	return r.PathFeatures(r.order...)
}
