package cache

// GraphKeyOpts identifies one connectivity-graph build variant.
type GraphKeyOpts struct {
	Types  []string `json:"types,omitempty"`
	Labels bool     `json:"labels,omitempty"`
}

// ArtifactKeyOpts identifies one rendered artifact variant.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// Keyer builds cache keys. Implementations must be deterministic: the same
// inputs always produce the same key.
type Keyer interface {
	// GraphKey identifies a connectivity graph built from a bundle,
	// derived from the bundle content hash and the build options.
	GraphKey(bundleHash string, opts GraphKeyOpts) string

	// ArtifactKey identifies a rendered artifact, derived from the graph
	// content hash and the render options.
	ArtifactKey(graphHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// GraphKey generates a key for a built connectivity graph.
func (k *DefaultKeyer) GraphKey(bundleHash string, opts GraphKeyOpts) string {
	return hashKey("graph", bundleHash, opts)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", graphHash, opts)
}
