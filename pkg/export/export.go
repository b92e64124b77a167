package export

import (
	"context"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/cache"
	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/observability"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// Format selects the export output format.
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat validates a format string from a flag or request parameter.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDOT, FormatSVG, FormatPNG:
		return Format(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q (want dot, svg, or png)", s)
}

// Exporter runs the two-stage export pipeline with caching: the built DOT
// graph keyed by bundle hash and options, and the rendered artifact keyed by
// graph content and format. The CLI and the control server share entries by
// pointing at the same cache directory.
type Exporter struct {
	cache cache.Cache
	keyer cache.Keyer
}

// NewExporter creates an exporter over the given cache. A nil cache disables
// caching.
func NewExporter(c cache.Cache) *Exporter {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Exporter{cache: c, keyer: cache.NewDefaultKeyer()}
}

// Export builds the connectivity graph for the registry and renders it in
// the requested format. bundleHash identifies the loaded bundle's content;
// both pipeline stages are looked up in the cache before being recomputed.
func (e *Exporter) Export(ctx context.Context, reg *pathway.Registry, table *annotation.Table, bundleHash string, opts Options, format Format) ([]byte, error) {
	dot, err := e.graph(ctx, reg, table, bundleHash, opts)
	if err != nil {
		return nil, err
	}
	if format == FormatDOT {
		return dot, nil
	}
	return e.artifact(ctx, dot, format)
}

func (e *Exporter) graph(ctx context.Context, reg *pathway.Registry, table *annotation.Table, bundleHash string, opts Options) ([]byte, error) {
	key := e.keyer.GraphKey(bundleHash, cache.GraphKeyOpts{
		Types:  opts.typeStrings(),
		Labels: opts.Labels,
	})
	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, key)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, key)

	dot := []byte(DOT(reg, table, opts))
	if err := e.cache.Set(ctx, key, dot, cache.TTLGraph); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cache connectivity graph")
	}
	observability.Cache().OnCacheSet(ctx, key, len(dot))
	return dot, nil
}

func (e *Exporter) artifact(ctx context.Context, dot []byte, format Format) ([]byte, error) {
	key := e.keyer.ArtifactKey(cache.Hash(dot), cache.ArtifactKeyOpts{Format: string(format)})
	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		observability.Cache().OnCacheHit(ctx, key)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, key)

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatSVG:
		data, err = RenderSVG(string(dot))
	case FormatPNG:
		data, err = RenderPNG(string(dot))
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown export format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}

	if err := e.cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cache rendered artifact")
	}
	observability.Cache().OnCacheSet(ctx, key, len(data))
	return data, nil
}
