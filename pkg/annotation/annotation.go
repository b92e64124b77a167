// Package annotation holds the read-only annotation table of a loaded map:
// per-feature anatomical terms, containment children, taxon observations,
// SCKAN validity, and the functional-connectivity class entries that systems
// are derived from. The table is built once per map and never mutated; the
// visibility engine consults it but owns no copy of its data.
package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/anatomaps/flatmap/pkg/pathway"
)

// FCClassSystem is the fc-class value marking an annotation entry as a
// functional-connectivity system grouping.
const FCClassSystem = "System"

// Validity classifies a feature's SCKAN annotation. Features without an
// sckan property are ValidityUnknown and are never filtered by SCKAN
// visibility state.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Record is one feature's entry in the annotations document.
type Record struct {
	FeatureID  pathway.FeatureID   `json:"featureId"`
	ID         string              `json:"id,omitempty"`
	Name       string              `json:"name,omitempty"`
	Models     string              `json:"models,omitempty"`
	Taxons     []string            `json:"taxons,omitempty"`
	Dataset    string              `json:"dataset,omitempty"`
	Source     string              `json:"source,omitempty"`
	Children   []pathway.FeatureID `json:"children,omitempty"`
	FCClass    string              `json:"fc-class,omitempty"`
	Colour     string              `json:"colour,omitempty"`
	SCKAN      *bool               `json:"sckan,omitempty"`
	Centreline bool                `json:"centreline,omitempty"`
}

// SCKANValidity returns the record's SCKAN classification.
func (r *Record) SCKANValidity() Validity {
	if r.SCKAN == nil {
		return ValidityUnknown
	}
	if *r.SCKAN {
		return ValidityValid
	}
	return ValidityInvalid
}

// IsSystem reports whether the record describes a functional-connectivity
// system grouping.
func (r *Record) IsSystem() bool { return r.FCClass == FCClassSystem }

// Document is the decoded annotations document, keyed by feature id.
// JSON object keys are strings; keys that do not parse as feature ids are
// dropped during table construction.
type Document map[string]Record

// Parse decodes an annotations JSON document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse annotations document: %w", err)
	}
	return doc, nil
}

// Read decodes an annotations JSON document from r.
func Read(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read annotations document: %w", err)
	}
	return Parse(data)
}

// Table is the annotation table for one loaded map. All lookups are O(1) or
// return prebuilt indices. Table is immutable after construction and safe
// for concurrent readers.
type Table struct {
	records           map[pathway.FeatureID]*Record
	order             []pathway.FeatureID // feature ids, sorted
	byTaxon           map[string]*roaring.Bitmap
	taxons            []string  // taxon ids, sorted
	systems           []*Record // fc-class System entries, by name
	centrelineByModel map[string]pathway.FeatureID
}

// NewTable builds the annotation table from a decoded document. Entries whose
// key does not parse as a feature id are dropped; construction never fails.
func NewTable(doc Document) *Table {
	t := &Table{
		records:           make(map[pathway.FeatureID]*Record, len(doc)),
		byTaxon:           make(map[string]*roaring.Bitmap),
		centrelineByModel: make(map[string]pathway.FeatureID),
	}

	for key, rec := range doc {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			continue
		}
		rec.FeatureID = pathway.FeatureID(id)
		stored := rec
		t.records[stored.FeatureID] = &stored
		t.order = append(t.order, stored.FeatureID)
	}
	slices.Sort(t.order)

	for _, id := range t.order {
		rec := t.records[id]
		for _, taxon := range rec.Taxons {
			bm, ok := t.byTaxon[taxon]
			if !ok {
				bm = roaring.New()
				t.byTaxon[taxon] = bm
			}
			bm.Add(id)
		}
		if rec.IsSystem() {
			t.systems = append(t.systems, rec)
		}
		if rec.Centreline && rec.Models != "" {
			t.centrelineByModel[rec.Models] = id
		}
	}
	for taxon := range t.byTaxon {
		t.taxons = append(t.taxons, taxon)
	}
	slices.Sort(t.taxons)
	slices.SortFunc(t.systems, func(a, b *Record) int {
		return strings.Compare(a.Name, b.Name)
	})

	return t
}

// NumRecords returns the number of annotated features.
func (t *Table) NumRecords() int { return len(t.order) }

// FeatureIDs returns all annotated feature ids in sorted order.
func (t *Table) FeatureIDs() []pathway.FeatureID { return slices.Clone(t.order) }

// Record returns the annotation entry for the feature.
func (t *Table) Record(id pathway.FeatureID) (*Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Known reports whether the feature has an annotation entry. The enablement
// tracker uses this to ignore stale ids from racing UI events.
func (t *Table) Known(id pathway.FeatureID) bool {
	_, ok := t.records[id]
	return ok
}

// Children returns the feature's containment children, or nil if the feature
// is unknown or has none.
func (t *Table) Children(id pathway.FeatureID) []pathway.FeatureID {
	rec, ok := t.records[id]
	if !ok {
		return nil
	}
	return rec.Children
}

// Taxons returns the sorted taxon ids observed across all annotations.
func (t *Table) Taxons() []string { return slices.Clone(t.taxons) }

// FeaturesByTaxon returns the ids of features observed in the taxon as a
// fresh bitmap owned by the caller. Unknown taxons yield an empty bitmap.
func (t *Table) FeaturesByTaxon(taxon string) *roaring.Bitmap {
	if bm, ok := t.byTaxon[taxon]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// Systems returns the fc-class System entries ordered by name.
func (t *Table) Systems() []*Record { return slices.Clone(t.systems) }

// CentrelineModels returns the sorted model ids of centreline features.
func (t *Table) CentrelineModels() []string {
	models := make([]string, 0, len(t.centrelineByModel))
	for m := range t.centrelineByModel {
		models = append(models, m)
	}
	slices.Sort(models)
	return models
}

// CentrelineFeature returns the feature id of the centreline with the given
// model id.
func (t *Table) CentrelineFeature(modelID string) (pathway.FeatureID, bool) {
	id, ok := t.centrelineByModel[modelID]
	return id, ok
}
