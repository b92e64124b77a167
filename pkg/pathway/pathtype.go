package pathway

// PathType classifies a neuron path (or vascular segment) into one of the
// fixed catalogue entries used for legends, styling, and type-level toggling.
type PathType string

const (
	// PathTypeCNS marks central nervous system connections.
	PathTypeCNS PathType = "cns"
	// PathTypeIntracardiac marks local circuit neurons within the heart.
	PathTypeIntracardiac PathType = "intracardiac"
	// PathTypeParaPre marks parasympathetic pre-ganglionic paths.
	PathTypeParaPre PathType = "para-pre"
	// PathTypeParaPost marks parasympathetic post-ganglionic paths.
	PathTypeParaPost PathType = "para-post"
	// PathTypeSensory marks sensory (afferent) neuron paths.
	PathTypeSensory PathType = "sensory"
	// PathTypeSomatic marks somatic lower motor paths. The declared type
	// "motor" is accepted as an alias.
	PathTypeSomatic PathType = "somatic"
	// PathTypeSympPre marks sympathetic pre-ganglionic paths.
	PathTypeSympPre PathType = "symp-pre"
	// PathTypeSympPost marks sympathetic post-ganglionic paths.
	PathTypeSympPost PathType = "symp-post"
	// PathTypeOther is the catch-all bucket for unrecognized declared types.
	PathTypeOther PathType = "other"
	// PathTypeArterial marks arterial blood vessels. Disabled by default.
	PathTypeArterial PathType = "arterial"
	// PathTypeVenous marks venous blood vessels. Disabled by default.
	PathTypeVenous PathType = "venous"
	// PathTypeCentreline marks nerve centrelines. Centrelines are structural
	// and handled specially by map styles (see the flatmap package).
	PathTypeCentreline PathType = "centreline"
	// PathTypeError marks paths flagged with errors or warnings upstream.
	PathTypeError PathType = "error"
)

// TypeSpec describes one catalogue entry: how paths of the type are labelled
// and drawn, and whether they are shown when a map first loads.
type TypeSpec struct {
	Type    PathType
	Label   string
	Colour  string // CSS hex colour used for legend swatches and strokes
	Dashed  bool   // drawn with a dashed stroke
	Enabled bool   // enabled by default at map load
}

// typeCatalogue is the fixed path-type catalogue in legend order.
var typeCatalogue = []TypeSpec{
	{Type: PathTypeCNS, Label: "CNS connection", Colour: "#9B1FC1", Enabled: true},
	{Type: PathTypeIntracardiac, Label: "Local circuit neuron", Colour: "#F19E38", Enabled: true},
	{Type: PathTypeParaPre, Label: "Parasympathetic pre-ganglionic", Colour: "#3F8F4A", Enabled: true},
	{Type: PathTypeParaPost, Label: "Parasympathetic post-ganglionic", Colour: "#3F8F4A", Dashed: true, Enabled: true},
	{Type: PathTypeSensory, Label: "Sensory (afferent) neuron", Colour: "#2A62F6", Enabled: true},
	{Type: PathTypeSomatic, Label: "Somatic lower motor", Colour: "#98561D", Enabled: true},
	{Type: PathTypeSympPre, Label: "Sympathetic pre-ganglionic", Colour: "#EA3423", Enabled: true},
	{Type: PathTypeSympPost, Label: "Sympathetic post-ganglionic", Colour: "#EA3423", Dashed: true, Enabled: true},
	{Type: PathTypeOther, Label: "Other neuron type", Colour: "#888888", Enabled: true},
	{Type: PathTypeArterial, Label: "Arterial blood vessel", Colour: "#FF0000", Enabled: false},
	{Type: PathTypeVenous, Label: "Venous blood vessel", Colour: "#2F6EBA", Enabled: false},
	{Type: PathTypeCentreline, Label: "Nerve centrelines", Colour: "#CCCCCC", Enabled: false},
	{Type: PathTypeError, Label: "Paths with errors or warnings", Colour: "#FFFF00", Enabled: true},
}

// typeSpecs indexes the catalogue by type for O(1) lookup.
var typeSpecs = func() map[PathType]TypeSpec {
	m := make(map[PathType]TypeSpec, len(typeCatalogue))
	for _, spec := range typeCatalogue {
		m[spec.Type] = spec
	}
	return m
}()

// Types returns the full path-type catalogue in legend order.
// The returned slice is a copy and can be safely modified.
func Types() []TypeSpec {
	out := make([]TypeSpec, len(typeCatalogue))
	copy(out, typeCatalogue)
	return out
}

// LookupType returns the catalogue entry for t. The second return value
// reports whether t is a known catalogue type.
func LookupType(t PathType) (TypeSpec, bool) {
	spec, ok := typeSpecs[t]
	return spec, ok
}

// KnownType reports whether t is in the fixed catalogue.
func KnownType(t PathType) bool {
	_, ok := typeSpecs[t]
	return ok
}

// NormalizeType maps a declared type string onto the catalogue. Unrecognized
// values bucket into [PathTypeOther]; the legacy "motor" spelling maps to
// [PathTypeSomatic].
func NormalizeType(declared string) PathType {
	if declared == "motor" {
		return PathTypeSomatic
	}
	t := PathType(declared)
	if !KnownType(t) {
		return PathTypeOther
	}
	return t
}

// TypeEnabledByDefault reports whether paths with the given declared type are
// shown when a map first loads. Unrecognized declared types report false even
// though they bucket into [PathTypeOther] for indexing.
func TypeEnabledByDefault(declared string) bool {
	t := PathType(declared)
	if declared == "motor" {
		t = PathTypeSomatic
	}
	spec, ok := typeSpecs[t]
	if !ok {
		return false
	}
	return spec.Enabled
}
