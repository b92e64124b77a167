// Package server exposes a loaded map's control surface over HTTP. Outer UI
// controls (legend panels, search results, annotation tools) drive the
// visibility engine through this API instead of touching renderer state
// directly; every route resolves to one public method of [flatmap.Map].
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/anatomaps/flatmap/pkg/errors"
	"github.com/anatomaps/flatmap/pkg/export"
	"github.com/anatomaps/flatmap/pkg/flatmap"
	"github.com/anatomaps/flatmap/pkg/pathway"
)

// Server serves the control API for one loaded map.
type Server struct {
	m        *flatmap.Map
	exporter *export.Exporter
	logger   *log.Logger
}

// New creates a control server over the map. A nil exporter disables the
// connectivity export route's caching, not the route itself.
func New(m *flatmap.Map, exporter *export.Exporter, logger *log.Logger) *Server {
	if exporter == nil {
		exporter = export.NewExporter(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{m: m, exporter: exporter, logger: logger}
}

// Router builds the chi router for the control API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/map", func(r chi.Router) {
		r.Get("/", s.handleInfo)

		r.Get("/pathtypes", s.handleGetPathTypes)
		r.Post("/pathtypes/{type}", s.handleSetPathType)

		r.Get("/systems", s.handleGetSystems)
		r.Post("/systems/{name}", s.handleSetSystem)

		r.Get("/taxons", s.handleGetTaxons)
		r.Post("/taxons", s.handleSetTaxons)

		r.Get("/centrelines", s.handleGetCentrelines)
		r.Post("/centrelines", s.handleSetCentrelines)

		r.Get("/models", s.handleGetModels)
		r.Post("/models", s.handleSetModel)

		r.Post("/features", s.handleEnableFeatures)
		r.Get("/features/{id}", s.handleGetFeature)

		r.Get("/selection", s.handleGetSelection)
		r.Post("/selection", s.handleSelect)
		r.Delete("/selection", s.handleUnselect)

		r.Get("/sckan", s.handleGetSCKAN)
		r.Put("/sckan", s.handleSetSCKAN)

		r.Get("/export", s.handleExport)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type mapInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Style    string `json:"style"`
	Taxon    string `json:"taxon,omitempty"`
	Version  string `json:"version,omitempty"`
	Paths    int    `json:"paths"`
	Features int    `json:"features"`
	SCKAN    string `json:"sckan"`
	Dimmed   bool   `json:"dimmed"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	idx := s.m.Index()
	s.writeJSON(w, http.StatusOK, mapInfo{
		ID:       s.m.ID(),
		Name:     idx.Name,
		Style:    s.m.Style(),
		Taxon:    idx.Taxon,
		Version:  idx.Version,
		Paths:    s.m.NumPaths(),
		Features: s.m.NumFeatures(),
		SCKAN:    string(s.m.SCKANState()),
		Dimmed:   s.m.Dimmed(),
	})
}

func (s *Server) handleGetPathTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.m.PathTypes())
}

type enableRequest struct {
	Enabled bool `json:"enabled"`
	Force   bool `json:"force,omitempty"`
}

func (s *Server) handleSetPathType(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "type")
	var req enableRequest
	if !s.decode(w, r, &req) {
		return
	}

	known := false
	resolved := pathway.NormalizeType(name)
	for _, t := range s.m.PathTypes() {
		if string(t.Type) == name || (name == "motor" && t.Type == resolved) {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, http.StatusNotFound, errors.ErrCodeNotFound,
			"path type not in this map", map[string]any{"type": name})
		return
	}

	s.m.EnablePathsByType(name, req.Enabled)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"type":    name,
		"enabled": s.m.PathTypeEnabled(name),
	})
}

func (s *Server) handleGetSystems(w http.ResponseWriter, r *http.Request) {
	systems := s.m.Systems()
	if systems == nil {
		systems = []flatmap.System{}
	}
	s.writeJSON(w, http.StatusOK, systems)
}

func (s *Server) handleSetSystem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req enableRequest
	if !s.decode(w, r, &req) {
		return
	}

	known := false
	for _, sys := range s.m.Systems() {
		if sys.Name == name {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, http.StatusNotFound, errors.ErrCodeNotFound,
			"system not in this map", map[string]any{"system": name})
		return
	}

	s.m.EnablePathsBySystem(name, req.Enabled, req.Force)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"system":  name,
		"enabled": s.m.SystemEnabled(name),
	})
}

func (s *Server) handleGetTaxons(w http.ResponseWriter, r *http.Request) {
	taxons := s.m.Taxons()
	if taxons == nil {
		taxons = []string{}
	}
	s.writeJSON(w, http.StatusOK, taxons)
}

type taxonsRequest struct {
	Taxons  []string `json:"taxons"`
	Enabled bool     `json:"enabled"`
}

func (s *Server) handleSetTaxons(w http.ResponseWriter, r *http.Request) {
	var req taxonsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Taxons) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"taxons must not be empty", nil)
		return
	}

	s.m.EnableConnectivityByTaxon(req.Taxons, req.Enabled)

	states := make(map[string]bool, len(req.Taxons))
	for _, taxon := range req.Taxons {
		states[taxon] = s.m.TaxonEnabled(taxon)
	}
	s.writeJSON(w, http.StatusOK, states)
}

type centrelineState struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleGetCentrelines(w http.ResponseWriter, r *http.Request) {
	ids := s.m.Centrelines()
	out := make([]centrelineState, 0, len(ids))
	for _, id := range ids {
		out = append(out, centrelineState{ID: id, Enabled: s.m.CentrelineEnabled(id)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type centrelinesRequest struct {
	Centrelines []string `json:"centrelines"`
	Enabled     bool     `json:"enabled"`
}

func (s *Server) handleSetCentrelines(w http.ResponseWriter, r *http.Request) {
	var req centrelinesRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Centrelines) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"centrelines must not be empty", nil)
		return
	}

	s.m.EnableCentrelines(req.Centrelines, req.Enabled)

	states := make(map[string]bool, len(req.Centrelines))
	for _, id := range req.Centrelines {
		states[id] = s.m.CentrelineEnabled(id)
	}
	s.writeJSON(w, http.StatusOK, states)
}

type modelState struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleGetModels(w http.ResponseWriter, r *http.Request) {
	ids := s.m.ConnectivityModels()
	out := make([]modelState, 0, len(ids))
	for _, id := range ids {
		out = append(out, modelState{ID: id, Enabled: s.m.ModelEnabled(id)})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// Model ids are URIs, so they travel in the body rather than the path.
type modelRequest struct {
	Model   string `json:"model"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleSetModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Model == "" {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"model must not be empty", nil)
		return
	}

	s.m.EnableConnectivityByModel(req.Model, req.Enabled)
	s.writeJSON(w, http.StatusOK, modelState{ID: req.Model, Enabled: s.m.ModelEnabled(req.Model)})
}

type featuresRequest struct {
	Features []pathway.FeatureID `json:"features"`
	Enabled  bool                `json:"enabled"`
	Force    bool                `json:"force,omitempty"`
	Children bool                `json:"children,omitempty"`
}

func (s *Server) handleEnableFeatures(w http.ResponseWriter, r *http.Request) {
	var req featuresRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Features) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"features must not be empty", nil)
		return
	}

	for _, id := range req.Features {
		if req.Children {
			s.m.EnableFeatureWithChildren(id, req.Enabled, req.Force)
		} else {
			s.m.EnableFeature(id, req.Enabled, req.Force)
		}
	}

	states := make(map[string]bool, len(req.Features))
	for _, id := range req.Features {
		states[strconv.FormatUint(uint64(id), 10)] = s.m.FeatureEnabled(id)
	}
	s.writeJSON(w, http.StatusOK, states)
}

type featureState struct {
	ID       pathway.FeatureID `json:"id"`
	Enabled  bool              `json:"enabled"`
	Selected bool              `json:"selected"`
	Active   bool              `json:"active"`
}

func (s *Server) handleGetFeature(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id64, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"feature id must be a uint32", map[string]any{"id": raw})
		return
	}
	id := pathway.FeatureID(id64)

	active := false
	for _, a := range s.m.ActiveFeatures() {
		if a == id {
			active = true
			break
		}
	}
	s.writeJSON(w, http.StatusOK, featureState{
		ID:       id,
		Enabled:  s.m.FeatureEnabled(id),
		Selected: s.m.FeatureSelected(id),
		Active:   active,
	})
}

type selectionResponse struct {
	Selected []pathway.FeatureID `json:"selected"`
	Dimmed   bool                `json:"dimmed"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	selected := s.m.SelectedFeatures()
	if selected == nil {
		selected = []pathway.FeatureID{}
	}
	s.writeJSON(w, http.StatusOK, selectionResponse{Selected: selected, Dimmed: s.m.Dimmed()})
}

type selectRequest struct {
	Features []pathway.FeatureID `json:"features"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}

	selected := s.m.SelectFeatures(req.Features...)
	if selected == nil {
		selected = []pathway.FeatureID{}
	}
	s.writeJSON(w, http.StatusOK, selectionResponse{Selected: selected, Dimmed: s.m.Dimmed()})
}

func (s *Server) handleUnselect(w http.ResponseWriter, r *http.Request) {
	s.m.UnselectFeatures()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSCKAN(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"state": string(s.m.SCKANState())})
}

type sckanRequest struct {
	State string `json:"state"`
}

func (s *Server) handleSetSCKAN(w http.ResponseWriter, r *http.Request) {
	var req sckanRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.m.SetSCKANState(flatmap.SCKANState(req.State)); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.GetCode(err),
			errors.UserMessage(err), map[string]any{"state": req.State})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": string(s.m.SCKANState())})
}

var exportContentTypes = map[export.Format]string{
	export.FormatDOT: "text/vnd.graphviz",
	export.FormatSVG: "image/svg+xml",
	export.FormatPNG: "image/png",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatDOT)
	}
	format, err := export.ParseFormat(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.GetCode(err),
			errors.UserMessage(err), map[string]any{"format": raw})
		return
	}

	opts := export.Options{Labels: r.URL.Query().Get("labels") == "true"}
	for _, t := range r.URL.Query()["type"] {
		opts.Types = append(opts.Types, pathway.NormalizeType(t))
	}

	data, err := s.exporter.Export(r.Context(), s.m.Registry(), s.m.Annotations(), s.m.ContentHash(), opts, format)
	if err != nil {
		s.logger.Error("connectivity export failed", "format", format, "err", err)
		s.writeError(w, http.StatusInternalServerError, errors.GetCode(err),
			errors.UserMessage(err), nil)
		return
	}

	w.Header().Set("Content-Type", exportContentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// =============================================================================
// Response helpers
// =============================================================================

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code errors.Code, msg string, details map[string]any) {
	s.writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    string(code),
		Message: msg,
		Details: details,
	}})
}

// decode reads a JSON request body into v, answering 400 on malformed input.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.ErrCodeInvalidOptions,
			"malformed JSON body", map[string]any{"error": err.Error()})
		return false
	}
	return true
}
