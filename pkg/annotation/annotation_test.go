package annotation

import (
	"slices"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

// testTable builds the annotation table shared by most tests.
func testTable() *Table {
	return NewTable(Document{
		"1": {
			ID:       "UBERON:0000948",
			Name:     "heart",
			Models:   "UBERON:0000948",
			Children: []uint32{2, 3},
			Taxons:   []string{"NCBITaxon:9606", "NCBITaxon:10114"},
		},
		"2": {Name: "left ventricle", Taxons: []string{"NCBITaxon:9606"}},
		"3": {Name: "right ventricle"},
		"4": {
			Name:    "Cardiovascular",
			FCClass: FCClassSystem,
			Colour:  "#D58C9D",
		},
		"5": {
			Name:    "Respiratory",
			FCClass: FCClassSystem,
			Colour:  "#79C7BB",
		},
		"6": {Name: "neuron path", SCKAN: boolPtr(true)},
		"7": {Name: "suspect path", SCKAN: boolPtr(false)},
		"8": {
			Name:       "vagus nerve",
			Models:     "UBERON:0001759",
			Centreline: true,
		},
		"not-a-feature": {Name: "dropped"},
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"Empty", `{}`, 0, false},
		{"Single", `{"1": {"name": "heart", "children": [2, 3]}}`, 1, false},
		{"Malformed", `{"1": `, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(doc) != tt.want {
				t.Errorf("len(doc) = %d, want %d", len(doc), tt.want)
			}
		})
	}
}

func TestNewTable(t *testing.T) {
	tab := testTable()

	// The non-numeric key is dropped.
	if got := tab.NumRecords(); got != 8 {
		t.Errorf("NumRecords() = %d, want 8", got)
	}
	if !slices.IsSorted(tab.FeatureIDs()) {
		t.Errorf("FeatureIDs() = %v, want sorted", tab.FeatureIDs())
	}

	rec, ok := tab.Record(1)
	if !ok {
		t.Fatal("Record(1) not found")
	}
	if rec.Name != "heart" {
		t.Errorf("Record(1).Name = %q, want %q", rec.Name, "heart")
	}
	if rec.FeatureID != 1 {
		t.Errorf("Record(1).FeatureID = %d, want 1", rec.FeatureID)
	}

	if _, ok := tab.Record(999); ok {
		t.Error("Record(999) should not exist")
	}
	if tab.Known(999) {
		t.Error("Known(999) = true, want false")
	}
}

func TestChildren(t *testing.T) {
	tab := testTable()

	if got := tab.Children(1); !slices.Equal(got, []uint32{2, 3}) {
		t.Errorf("Children(1) = %v, want [2 3]", got)
	}
	if got := tab.Children(2); got != nil {
		t.Errorf("Children(2) = %v, want nil", got)
	}
	if got := tab.Children(999); got != nil {
		t.Errorf("Children(999) = %v, want nil", got)
	}
}

func TestFeaturesByTaxon(t *testing.T) {
	tab := testTable()

	if got := tab.Taxons(); !slices.Equal(got, []string{"NCBITaxon:10114", "NCBITaxon:9606"}) {
		t.Errorf("Taxons() = %v", got)
	}

	human := tab.FeaturesByTaxon("NCBITaxon:9606")
	if !slices.Equal(human.ToArray(), []uint32{1, 2}) {
		t.Errorf("FeaturesByTaxon(human) = %v, want [1 2]", human.ToArray())
	}

	rat := tab.FeaturesByTaxon("NCBITaxon:10114")
	if !slices.Equal(rat.ToArray(), []uint32{1}) {
		t.Errorf("FeaturesByTaxon(rat) = %v, want [1]", rat.ToArray())
	}

	if got := tab.FeaturesByTaxon("NCBITaxon:0"); !got.IsEmpty() {
		t.Errorf("FeaturesByTaxon(unknown) = %v, want empty", got.ToArray())
	}

	// Returned bitmap is a clone, not internal storage.
	human.Add(42)
	if tab.FeaturesByTaxon("NCBITaxon:9606").Contains(42) {
		t.Error("FeaturesByTaxon returned internal bitmap storage")
	}
}

func TestSystems(t *testing.T) {
	tab := testTable()

	systems := tab.Systems()
	if len(systems) != 2 {
		t.Fatalf("len(Systems()) = %d, want 2", len(systems))
	}
	// Ordered by name.
	if systems[0].Name != "Cardiovascular" || systems[1].Name != "Respiratory" {
		t.Errorf("Systems() order = [%s %s], want [Cardiovascular Respiratory]",
			systems[0].Name, systems[1].Name)
	}
	if !systems[0].IsSystem() {
		t.Error("IsSystem() = false for fc-class System record")
	}
	if systems[0].Colour != "#D58C9D" {
		t.Errorf("system colour = %q, want #D58C9D", systems[0].Colour)
	}
}

func TestSCKANValidity(t *testing.T) {
	tab := testTable()

	tests := []struct {
		name string
		id   uint32
		want Validity
	}{
		{"Valid", 6, ValidityValid},
		{"Invalid", 7, ValidityInvalid},
		{"Unannotated", 1, ValidityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := tab.Record(tt.id)
			if !ok {
				t.Fatalf("Record(%d) not found", tt.id)
			}
			if got := rec.SCKANValidity(); got != tt.want {
				t.Errorf("SCKANValidity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCentrelines(t *testing.T) {
	tab := testTable()

	if got := tab.CentrelineModels(); !slices.Equal(got, []string{"UBERON:0001759"}) {
		t.Errorf("CentrelineModels() = %v, want [UBERON:0001759]", got)
	}

	id, ok := tab.CentrelineFeature("UBERON:0001759")
	if !ok {
		t.Fatal("CentrelineFeature(vagus) not found")
	}
	if id != 8 {
		t.Errorf("CentrelineFeature(vagus) = %d, want 8", id)
	}

	if _, ok := tab.CentrelineFeature("UBERON:0000000"); ok {
		t.Error("CentrelineFeature(unknown) should report not found")
	}
}
