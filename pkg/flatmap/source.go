package flatmap

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/anatomaps/flatmap/pkg/annotation"
	"github.com/anatomaps/flatmap/pkg/cache"
	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/httputil"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// Bundle document names within a map directory or URL prefix.
const (
	indexDocument       = "index.json"
	pathwaysDocument    = "pathways.json"
	annotationsDocument = "annotations.json"
	featuresDocument    = "features.json"
)

// Index is the bundle's descriptor document.
type Index struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Style   string `json:"style,omitempty"`
	Taxon   string `json:"taxon,omitempty"`
	Created string `json:"created,omitempty"`
	Version string `json:"version,omitempty"`
}

// Bundle holds everything needed to initialize one map: the descriptor,
// the pathway and annotation documents, and an optional GeoJSON feature
// layer for offscreen rendering. Nil Pathways or Annotations mean the
// source had no such document; map initialization fails on either.
type Bundle struct {
	Index       Index
	Pathways    *pathway.Document
	Annotations annotation.Document
	Features    []byte
}

// ContentHash returns a deterministic hash over the bundle's documents,
// used to key export pipeline cache entries. Re-marshaling through
// encoding/json canonicalizes map key order, so equal bundles hash equally
// regardless of which source produced them.
func (b *Bundle) ContentHash() string {
	data, _ := json.Marshal(struct {
		Index       Index               `json:"index"`
		Pathways    *pathway.Document   `json:"pathways"`
		Annotations annotation.Document `json:"annotations"`
		Features    []byte              `json:"features,omitempty"`
	}{b.Index, b.Pathways, b.Annotations, b.Features})
	return cache.Hash(data)
}

// Source loads map bundles by id.
type Source interface {
	Load(ctx context.Context, mapID string) (*Bundle, error)
}

// StaticSource serves bundles held in memory, keyed by map id. It backs
// tests and embedded deployments where bundles ship with the binary.
type StaticSource map[string]*Bundle

var _ Source = (StaticSource)(nil)

// Load returns the bundle registered under mapID.
func (s StaticSource) Load(ctx context.Context, mapID string) (*Bundle, error) {
	b, ok := s[mapID]
	if !ok {
		return nil, errors.New(errors.ErrCodeMapNotFound, "map %q not in source", mapID)
	}
	return b, nil
}

// singleSource serves one in-memory bundle regardless of the requested id.
type singleSource struct {
	bundle *Bundle
}

func (s singleSource) Load(ctx context.Context, mapID string) (*Bundle, error) {
	return s.bundle, nil
}

// =============================================================================
// Directory Source
// =============================================================================

// DirSource loads bundles from per-map subdirectories of a root directory.
// Each map lives at <root>/<mapID>/ with the fixed document names
// index.json, pathways.json, annotations.json, and features.json; the
// index and feature layer are optional.
type DirSource struct {
	root string
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Load reads the bundle for mapID from disk.
func (s *DirSource) Load(ctx context.Context, mapID string) (*Bundle, error) {
	if err := errors.ValidateMapID(mapID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, mapID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeMapNotFound, "map %q not in %s", mapID, s.root)
	}
	bundle := &Bundle{Index: Index{ID: mapID}}

	// The index document is optional; a missing one is synthesized from the
	// map id so older bundle layouts keep working.
	if data, err := os.ReadFile(filepath.Join(dir, indexDocument)); err == nil {
		if err := json.Unmarshal(data, &bundle.Index); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoding %s for map %s", indexDocument, mapID)
		}
		if bundle.Index.ID == "" {
			bundle.Index.ID = mapID
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "reading %s for map %s", indexDocument, mapID)
	}

	data, err := os.ReadFile(filepath.Join(dir, pathwaysDocument))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "reading %s for map %s", pathwaysDocument, mapID)
	}
	pdoc, err := pathway.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoding %s for map %s", pathwaysDocument, mapID)
	}
	bundle.Pathways = &pdoc

	data, err = os.ReadFile(filepath.Join(dir, annotationsDocument))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "reading %s for map %s", annotationsDocument, mapID)
	}
	adoc, err := annotation.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoding %s for map %s", annotationsDocument, mapID)
	}
	bundle.Annotations = adoc

	if data, err := os.ReadFile(filepath.Join(dir, featuresDocument)); err == nil {
		bundle.Features = data
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeSourceFetch, err, "reading %s for map %s", featuresDocument, mapID)
	}

	return bundle, nil
}

// =============================================================================
// HTTP Source
// =============================================================================

// HTTPSource fetches bundles from a map server over HTTP. Documents live
// under <base>/<mapID>/<document> and are cached on disk per map id with
// TTL-based staleness; transient failures retry with backoff.
type HTTPSource struct {
	base    string
	cache   *httputil.Cache
	refresh bool
	logger  *log.Logger
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source for the map server at baseURL. Cache
// directory, TTL, and refresh behaviour come from opts; when the cache
// directory cannot be created the source fetches without caching.
func NewHTTPSource(baseURL string, opts Options) (*HTTPSource, error) {
	if err := errors.ValidateSourceURL(baseURL); err != nil {
		return nil, err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	cache, err := httputil.NewCache(opts.CacheDir, opts.CacheTTL)
	if err != nil {
		logger.Warn("bundle cache unavailable, fetching without cache", "err", err)
		cache = nil
	}

	return &HTTPSource{
		base:    strings.TrimSuffix(baseURL, "/"),
		cache:   cache,
		refresh: opts.Refresh,
		logger:  logger,
	}, nil
}

// Load fetches the bundle for mapID from the map server.
func (s *HTTPSource) Load(ctx context.Context, mapID string) (*Bundle, error) {
	if err := errors.ValidateMapID(mapID); err != nil {
		return nil, err
	}
	client := s.clientFor(mapID)
	bundle := &Bundle{Index: Index{ID: mapID}}

	// Optional descriptor; older map servers do not serve one.
	var idx Index
	err := client.Cached(ctx, indexDocument, s.refresh, &idx, func() error {
		return client.Get(ctx, s.url(mapID, indexDocument), &idx)
	})
	switch {
	case err == nil:
		if idx.ID == "" {
			idx.ID = mapID
		}
		bundle.Index = idx
	case stderrors.Is(err, httputil.ErrNotFound):
		s.logger.Debug("map has no index document", "map", mapID)
	default:
		return nil, fetchError(err, indexDocument, mapID)
	}

	var pdoc pathway.Document
	if err := client.Cached(ctx, pathwaysDocument, s.refresh, &pdoc, func() error {
		return client.Get(ctx, s.url(mapID, pathwaysDocument), &pdoc)
	}); err != nil {
		return nil, fetchError(err, pathwaysDocument, mapID)
	}
	bundle.Pathways = &pdoc

	var adoc annotation.Document
	if err := client.Cached(ctx, annotationsDocument, s.refresh, &adoc, func() error {
		return client.Get(ctx, s.url(mapID, annotationsDocument), &adoc)
	}); err != nil {
		return nil, fetchError(err, annotationsDocument, mapID)
	}
	bundle.Annotations = adoc

	// Optional GeoJSON feature layer for offscreen rendering.
	var features []byte
	err = client.Cached(ctx, featuresDocument, s.refresh, &features, func() error {
		data, err := client.GetBytes(ctx, s.url(mapID, featuresDocument))
		if err != nil {
			return err
		}
		features = data
		return nil
	})
	switch {
	case err == nil:
		bundle.Features = features
	case stderrors.Is(err, httputil.ErrNotFound):
		s.logger.Debug("map has no feature layer", "map", mapID)
	default:
		return nil, fetchError(err, featuresDocument, mapID)
	}

	return bundle, nil
}

func (s *HTTPSource) url(mapID, document string) string {
	return fmt.Sprintf("%s/%s/%s", s.base, mapID, document)
}

// clientFor builds a client whose cache entries are namespaced by map id,
// so clearing or expiring one map's documents leaves the others alone.
func (s *HTTPSource) clientFor(mapID string) *httputil.Client {
	var cache *httputil.Cache
	if s.cache != nil {
		cache = s.cache.Namespace(mapID + ":")
	}
	return httputil.NewClient(cache, nil)
}

// fetchError maps transport errors onto the structured taxonomy: a 404 means
// the server has no such map, network failures are fetch errors, and
// anything else is a malformed document.
func fetchError(err error, document, mapID string) error {
	switch {
	case stderrors.Is(err, httputil.ErrNotFound):
		return errors.Wrap(errors.ErrCodeMapNotFound, err, "map %s has no %s", mapID, document)
	case stderrors.Is(err, httputil.ErrNetwork):
		return errors.Wrap(errors.ErrCodeSourceFetch, err, "fetching %s for map %s", document, mapID)
	default:
		return errors.Wrap(errors.ErrCodeInvalidBundle, err, "decoding %s for map %s", document, mapID)
	}
}
