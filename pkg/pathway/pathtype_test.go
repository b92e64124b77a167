package pathway

import "testing"

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		want     PathType
	}{
		{"KnownType", "sensory", PathTypeSensory},
		{"DashedVariant", "symp-post", PathTypeSympPost},
		{"MotorAlias", "motor", PathTypeSomatic},
		{"UnknownBucketsToOther", "nonsense-type", PathTypeOther},
		{"EmptyBucketsToOther", "", PathTypeOther},
		{"OtherStaysOther", "other", PathTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeType(tt.declared); got != tt.want {
				t.Errorf("NormalizeType(%q) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}

func TestTypeEnabledByDefault(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		want     bool
	}{
		{"Sensory", "sensory", true},
		{"Other", "other", true},
		{"MotorAlias", "motor", true},
		{"Arterial", "arterial", false},
		{"Venous", "venous", false},
		{"Centreline", "centreline", false},
		{"UnknownType", "nonsense-type", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeEnabledByDefault(tt.declared); got != tt.want {
				t.Errorf("TypeEnabledByDefault(%q) = %v, want %v", tt.declared, got, tt.want)
			}
		})
	}
}

func TestTypes(t *testing.T) {
	types := Types()
	if len(types) != 13 {
		t.Fatalf("len(Types()) = %d, want 13", len(types))
	}
	if types[0].Type != PathTypeCNS {
		t.Errorf("first catalogue entry = %v, want %v", types[0].Type, PathTypeCNS)
	}

	// Returned slice is a copy.
	types[0].Label = "mutated"
	if Types()[0].Label == "mutated" {
		t.Error("Types() returned internal catalogue storage")
	}
}

func TestLookupType(t *testing.T) {
	spec, ok := LookupType(PathTypeParaPost)
	if !ok {
		t.Fatal("LookupType(para-post) not found")
	}
	if !spec.Dashed {
		t.Error("para-post should be dashed")
	}
	if spec.Colour != "#3F8F4A" {
		t.Errorf("para-post colour = %q, want %q", spec.Colour, "#3F8F4A")
	}

	if _, ok := LookupType(PathType("bogus")); ok {
		t.Error("LookupType(bogus) should report not found")
	}
}
