// Package http exposes the trace and debugger views over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obeli-sk/webui/internal/logging"
	"github.com/obeli-sk/webui/pkg/debugger"
	"github.com/obeli-sk/webui/pkg/domain"
	"github.com/obeli-sk/webui/pkg/execstream"
	"github.com/obeli-sk/webui/pkg/logs"
	"github.com/obeli-sk/webui/pkg/ports"
	"github.com/obeli-sk/webui/pkg/status"
	"github.com/obeli-sk/webui/pkg/trace"
)

// Deps carries the components the server serves.
type Deps struct {
	Stream   *execstream.Stream
	Debugger *debugger.Debugger
	Watcher  *status.Watcher
	Client   ports.ExecutionClient
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

// Server serves the trace tree, debugger view, logs and status of tracked
// executions. Background fetch loops started from handlers are bound to the
// server's base context, not the request context, so they outlive the
// request that triggered them.
type Server struct {
	stream   *execstream.Stream
	debugger *debugger.Debugger
	watcher  *status.Watcher
	client   ports.ExecutionClient
	logger   *slog.Logger

	baseCtx context.Context

	mu      sync.Mutex
	pagers  map[domain.ExecutionID]*logs.Pager
	watches map[domain.ExecutionID]func()
}

// NewHandler creates the HTTP handler. ctx bounds all background work the
// handlers spawn.
func NewHandler(ctx context.Context, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	server := &Server{
		stream:   deps.Stream,
		debugger: deps.Debugger,
		watcher:  deps.Watcher,
		client:   deps.Client,
		logger:   logger,
		baseCtx:  ctx,
		pagers:   make(map[domain.ExecutionID]*logs.Pager),
		watches:  make(map[domain.ExecutionID]func()),
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]string{"status": "ok"})
	})
	r.Route("/api/executions/{id}", func(r chi.Router) {
		r.Get("/trace", server.GetTrace)
		r.Get("/debugger", server.GetDebuggerView)
		r.Get("/logs", server.GetLogs)
		r.Get("/status", server.GetStatus)
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// TraceResponse is the payload of GET /trace.
type TraceResponse struct {
	Root    *trace.Node          `json:"root"`
	Missing []domain.ExecutionID `json:"missing,omitempty"`
}

// GetTrace handles GET /api/executions/{id}/trace.
func (s *Server) GetTrace(w http.ResponseWriter, r *http.Request) {
	id := domain.ExecutionID{ID: chi.URLParam(r, "id")}
	opts := trace.Options{
		HideFinished: r.URL.Query().Get("hide_finished") == "true",
	}

	s.stream.Add(s.baseCtx, id)

	root, missing := trace.Build(s.stream.Snapshot(), id, opts)
	for _, child := range missing {
		s.stream.Add(s.baseCtx, child)
	}

	writeJSON(w, s.logger, TraceResponse{Root: root, Missing: missing})
}

// GetDebuggerView handles GET /api/executions/{id}/debugger.
func (s *Server) GetDebuggerView(w http.ResponseWriter, r *http.Request) {
	id := domain.ExecutionID{ID: chi.URLParam(r, "id")}

	path := domain.DefaultVersionPath()
	if raw := r.URL.Query().Get("path"); raw != "" {
		parsed, err := domain.ParseVersionPath(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid path: %v", err), http.StatusBadRequest)
			return
		}
		path = parsed
	}

	s.debugger.Open(s.baseCtx, id, path)

	view := s.debugger.View(id, path)
	if view == nil {
		http.Error(w, "Execution not loaded yet", http.StatusAccepted)
		return
	}
	writeJSON(w, s.logger, view)
}

// LogsResponse is the payload of GET /logs.
type LogsResponse struct {
	Logs    []domain.LogEntry `json:"logs"`
	HasMore bool              `json:"has_more"`
}

// GetLogs handles GET /api/executions/{id}/logs. Each call fetches the next
// page from the backend and returns everything collected so far.
func (s *Server) GetLogs(w http.ResponseWriter, r *http.Request) {
	id := domain.ExecutionID{ID: chi.URLParam(r, "id")}

	s.mu.Lock()
	pager, ok := s.pagers[id]
	if !ok {
		pager = logs.NewPager(s.client, id)
		s.pagers[id] = pager
	}
	s.mu.Unlock()

	if pager.HasMore() {
		if err := pager.FetchNext(r.Context()); err != nil && err != logs.ErrFetchInFlight {
			http.Error(w, fmt.Sprintf("Log fetch error: %v", err), http.StatusBadGateway)
			return
		}
	}

	writeJSON(w, s.logger, LogsResponse{
		Logs:    pager.Logs(),
		HasMore: pager.HasMore(),
	})
}

// StatusResponse is the payload of GET /status.
type StatusResponse struct {
	Known  bool                  `json:"known"`
	Status *domain.StatusMessage `json:"status,omitempty"`
}

// GetStatus handles GET /api/executions/{id}/status. The first call starts a
// background subscription; until the first message arrives the status is
// reported as unknown.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.ExecutionID{ID: chi.URLParam(r, "id")}

	s.mu.Lock()
	if _, ok := s.watches[id]; !ok {
		s.watches[id] = s.watcher.Subscribe(s.baseCtx, id, true)
	}
	s.mu.Unlock()

	resp := StatusResponse{}
	if msg, ok := s.watcher.Status(id); ok {
		resp.Known = true
		resp.Status = &msg
	}
	writeJSON(w, s.logger, resp)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
