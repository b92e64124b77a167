package flatmap

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Server
// =============================================================================

const (
	// DefaultCacheTTL is how long fetched bundle documents stay fresh.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultHitTolerance is the pointer hit-test tolerance in map units.
	DefaultHitTolerance = render.DefaultHitTolerance
)

// DefaultSCKAN is the SCKAN visibility state applied when none is configured.
const DefaultSCKAN = SCKANAll

// Map style constants. The style comes from the bundle index, not from
// options; it changes how centreline paths are treated at load.
const (
	StyleAnatomical = "anatomical"
	StyleFunctional = "functional"
	StyleCentreline = "centreline"
)

// ValidStyles is the set of recognized map styles. Bundles declaring any
// other style are treated as anatomical.
var ValidStyles = map[string]bool{
	StyleAnatomical: true,
	StyleFunctional: true,
	StyleCentreline: true,
}

// SCKANState selects which features are eligible for selection based on
// their SCKAN connectivity-validity annotation. Features without the
// annotation are always eligible except under [SCKANNone].
type SCKANState string

const (
	// SCKANAll admits every feature regardless of validity.
	SCKANAll SCKANState = "all"
	// SCKANValid admits features not annotated invalid.
	SCKANValid SCKANState = "valid"
	// SCKANInvalid admits features not annotated valid.
	SCKANInvalid SCKANState = "invalid"
	// SCKANNone admits only features without a validity annotation.
	SCKANNone SCKANState = "none"
)

// ValidSCKANStates is the set of supported SCKAN visibility states.
var ValidSCKANStates = map[SCKANState]bool{
	SCKANAll:     true,
	SCKANValid:   true,
	SCKANInvalid: true,
	SCKANNone:    true,
}

// ValidateSCKANState checks that a SCKAN visibility state is valid.
func ValidateSCKANState(s SCKANState) error {
	if !ValidSCKANStates[s] {
		return errors.New(errors.ErrCodeInvalidOptions,
			"invalid sckan state: %q (must be one of: all, valid, invalid, none)", s)
	}
	return nil
}

// =============================================================================
// Options - Viewer Configuration
// =============================================================================

// Options contains all configuration for loading and driving a map.
// This struct supports JSON serialization for control API requests.
type Options struct {
	// State options
	DisabledPathTypes []string `json:"disabled_path_types,omitempty"` // path types to start disabled regardless of catalogue default
	SCKAN             string   `json:"sckan,omitempty"`               // initial SCKAN visibility state
	NoDim             bool     `json:"no_dim,omitempty"`              // disable the dimmed paint mode on selection

	// Source options
	CacheDir string        `json:"cache_dir,omitempty"` // bundle cache directory (empty selects the per-user default)
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`
	Refresh  bool          `json:"refresh,omitempty"` // bypass cached bundle documents

	// Renderer options
	HitTolerance float64 `json:"hit_tolerance,omitempty"`

	// Runtime options (not serialized)
	Logger   *log.Logger     `json:"-"`
	Renderer render.Renderer `json:"-"` // nil selects an offscreen renderer fed from the bundle's feature layer

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ShouldDim reports whether selections switch the dimmed paint mode on.
func (o *Options) ShouldDim() bool {
	return !o.NoDim
}

// ValidateAndSetDefaults checks option values and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.SCKAN == "" {
		o.SCKAN = string(DefaultSCKAN)
	}
	if err := ValidateSCKANState(SCKANState(o.SCKAN)); err != nil {
		return err
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.HitTolerance <= 0 {
		o.HitTolerance = DefaultHitTolerance
	}
	o.validated = true
	return nil
}

// LoadOptions reads viewer options from a TOML file. Durations are written
// in Go syntax ("24h", "90m"). Missing fields keep their zero values so
// ValidateAndSetDefaults can apply the usual defaults afterwards.
func LoadOptions(path string) (Options, error) {
	var file struct {
		DisabledPathTypes []string `toml:"disabled_path_types"`
		SCKAN             string   `toml:"sckan"`
		NoDim             bool     `toml:"no_dim"`
		CacheDir          string   `toml:"cache_dir"`
		CacheTTL          string   `toml:"cache_ttl"`
		Refresh           bool     `toml:"refresh"`
		HitTolerance      float64  `toml:"hit_tolerance"`
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return Options{}, errors.Wrap(errors.ErrCodeInvalidOptions, err, "reading options file %s", path)
	}

	opts := Options{
		DisabledPathTypes: file.DisabledPathTypes,
		SCKAN:             file.SCKAN,
		NoDim:             file.NoDim,
		CacheDir:          file.CacheDir,
		Refresh:           file.Refresh,
		HitTolerance:      file.HitTolerance,
	}
	if file.CacheTTL != "" {
		ttl, err := time.ParseDuration(file.CacheTTL)
		if err != nil {
			return Options{}, errors.Wrap(errors.ErrCodeInvalidOptions, err, "invalid cache_ttl %q", file.CacheTTL)
		}
		opts.CacheTTL = ttl
	}
	return opts, nil
}
