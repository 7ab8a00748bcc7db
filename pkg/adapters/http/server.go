package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/weave/internal/logging"
	"github.com/aretw0/weave/internal/presentation/graph"
	"github.com/aretw0/weave/pkg/adapters/definition"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Server exposes a GraphStore and a GraphRunner over HTTP.
type Server struct {
	Store    ports.GraphStore
	Runner   ports.GraphRunner
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	maxBody  int64
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics serves the gatherer's metrics on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// NewHandler creates the HTTP handler for the graph API.
func NewHandler(store ports.GraphStore, runner ports.GraphRunner, opts ...Option) http.Handler {
	s := &Server{
		Store:   store,
		Runner:  runner,
		logger:  logging.NewNop(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.json", s.GetOpenAPI)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.ListGraphs)
		r.Post("/", s.CreateGraph)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetGraph)
			r.Patch("/", s.PatchGraph)
			r.Delete("/", s.DeleteGraph)
			r.Get("/export", s.ExportGraph)
			r.Get("/mermaid", s.GetMermaid)
			r.Post("/runs", s.StartRun)
			r.Get("/runs", s.ListRuns)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// ListGraphs handles GET /graphs. The optional owner query parameter filters by CreatedBy.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.Store.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if graphs == nil {
		graphs = []*domain.Graph{}
	}
	s.writeJSON(w, r, http.StatusOK, graphs)
}

// CreateGraph handles POST /graphs.
// The body is either an exported graph (JSON) or a definition document
// (Content-Type application/yaml). The graph is validated and stored under a fresh ID.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeStatus(w, r, http.StatusRequestEntityTooLarge, err)
		return
	}

	var g *domain.Graph
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		def, perr := definition.Parse(body, definition.FormatYAML)
		if perr != nil {
			s.writeStatus(w, r, http.StatusBadRequest, perr)
			return
		}
		g, err = definition.Compile(def)
	} else {
		g, err = domain.UnmarshalGraph(body)
		if err != nil {
			s.writeStatus(w, r, http.StatusBadRequest, err)
			return
		}
		err = schema.ValidateGraph(g)
	}
	if err != nil {
		s.writeStatus(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	data, err := domain.MarshalGraph(g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.Store.ImportJSON(r.Context(), data, r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "graph created", "graph_id", created.ID, "nodes", created.NodeCount())
	w.Header().Set("Location", "/graphs/"+created.ID)
	s.writeJSON(w, r, http.StatusCreated, created)
}

// GetGraph handles GET /graphs/{id}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, g)
}

// PatchGraphRequest lists the graph fields PATCH may change. Absent fields are kept.
type PatchGraphRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

// PatchGraph handles PATCH /graphs/{id}: rename, describe, enable or disable.
func (s *Server) PatchGraph(w http.ResponseWriter, r *http.Request) {
	var body PatchGraphRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&body); err != nil {
		s.writeStatus(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	g, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Name != nil {
		g.Name = *body.Name
	}
	if body.Description != nil {
		g.Description = *body.Description
	}
	if body.Enabled != nil {
		g.Enabled = *body.Enabled
	}
	g.UpdatedAt = time.Now().UTC()

	if err := s.Store.Save(r.Context(), g); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, g)
}

// DeleteGraph handles DELETE /graphs/{id}.
func (s *Server) DeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := s.Store.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !deleted {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrGraphNotFound, id))
		return
	}
	s.logger.InfoContext(r.Context(), "graph deleted", "graph_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ExportGraph handles GET /graphs/{id}/export.
func (s *Server) ExportGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.Store.ExportJSON(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	if _, err := w.Write(data); err != nil {
		s.logger.WarnContext(r.Context(), "export write failed", "graph_id", id, "err", err)
	}
}

// GetMermaid handles GET /graphs/{id}/mermaid.
// ?run=<runID> overlays that run's node statuses; ?run=latest uses the newest run.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var overlay *graph.Overlay
	if runID := r.URL.Query().Get("run"); runID != "" {
		history, err := s.Store.History(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		state := findRun(history, runID)
		if state == nil {
			s.writeStatus(w, r, http.StatusNotFound, fmt.Errorf("run not found: %s", runID))
			return
		}
		overlay = graph.OverlayFromState(state)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, graph.GenerateMermaid(g, overlay)); err != nil {
		s.logger.WarnContext(r.Context(), "mermaid write failed", "graph_id", id, "err", err)
	}
}

func findRun(history []*domain.ExecutionState, runID string) *domain.ExecutionState {
	if len(history) == 0 {
		return nil
	}
	if runID == "latest" {
		return history[len(history)-1]
	}
	for _, state := range history {
		if state.RunID == runID {
			return state
		}
	}
	return nil
}

// StartRun handles POST /graphs/{id}/runs. The optional body is the trigger payload.
// A run that fails still answers 201: the outcome is in the returned state.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if r.ContentLength != 0 {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&payload)
		if err != nil && !errors.Is(err, io.EOF) {
			s.writeStatus(w, r, http.StatusBadRequest, fmt.Errorf("invalid payload: %w", err))
			return
		}
	}

	id := chi.URLParam(r, "id")
	state, err := s.Runner.Run(r.Context(), id, payload)
	if err != nil && state == nil {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		s.logger.WarnContext(r.Context(), "run finished with error", "graph_id", id, "run_id", state.RunID, "err", err)
	}
	s.writeJSON(w, r, http.StatusCreated, state)
}

// ListRuns handles GET /graphs/{id}/runs, oldest first.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	history, err := s.Store.History(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []*domain.ExecutionState{}
	}
	s.writeJSON(w, r, http.StatusOK, history)
}

// -- Helpers --

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func statusFor(err error) int {
	var aggr *schema.AggregateError
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGraphDisabled):
		return http.StatusConflict
	case errors.As(err, &aggr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeStatus(w, r, statusFor(err), err)
}

func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	resp := ErrorResponse{Error: err.Error()}
	for _, e := range schema.ValidationErrors(err) {
		resp.Details = append(resp.Details, e.Error())
	}
	s.writeJSON(w, r, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WarnContext(r.Context(), "response encode failed", "path", r.URL.Path, "err", err)
	}
}
