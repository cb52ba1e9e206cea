// Package api exposes the HTTP surface: health, delta notifications, agent
// queries, runtime statistics and the MCP endpoint.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lblod/entity-linker/internal/agent"
	"github.com/lblod/entity-linker/internal/metrics"
	"github.com/lblod/entity-linker/internal/models"
)

// Trigger wakes the task coordinator. *service.Coordinator implements it.
type Trigger interface {
	Trigger()
}

// Options wires the handler's collaborators. Nil members disable the
// routes that need them.
type Options struct {
	Agent       agent.Agent
	Trigger     Trigger
	MCP         http.Handler
	Metrics     *metrics.Collector
	CORSOrigins string
	Logger      *slog.Logger
}

type handler struct {
	opts   Options
	logger *slog.Logger
}

// NewHandler builds the service's HTTP handler with its middleware chain.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{opts: opts, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("POST /delta", h.handleDelta)
	mux.HandleFunc("POST /agent/query", h.handleQuery)
	mux.HandleFunc("POST /agent/query_structured", h.handleQueryStructured)
	mux.HandleFunc("GET /stats", h.handleStats)
	if opts.MCP != nil {
		mux.Handle("/mcp", opts.MCP)
	}

	// recovery -> cors -> logging -> mux
	var out http.Handler = mux
	out = logMiddleware(logger, out)
	out = corsMiddleware(opts.CORSOrigins, out)
	out = recoveryMiddleware(logger, out)
	return out
}

// GET /
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "running",
		"endpoints": []string{"/mcp"},
	})
}

// POST /delta
// Delta notifications only wake the coordinator; the body is not inspected.
func (h *handler) handleDelta(w http.ResponseWriter, r *http.Request) {
	if h.opts.Trigger != nil {
		h.opts.Trigger.Trigger()
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /agent/query
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if h.opts.Agent == nil {
		writeError(w, http.StatusInternalServerError, "agent not initialized")
		return
	}

	resp, err := h.opts.Agent.Run(r.Context(), req.Query)
	if err != nil {
		h.agentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": resp})
}

// POST /agent/query_structured
func (h *handler) handleQueryStructured(w http.ResponseWriter, r *http.Request) {
	var req models.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.EntityClass == "" || req.EntityLabel == "" {
		writeError(w, http.StatusBadRequest, "entity_class and entity_label are required")
		return
	}
	if req.Location == "" {
		req.Location = models.UnknownLocation
	}
	if h.opts.Agent == nil {
		writeError(w, http.StatusInternalServerError, "agent not initialized")
		return
	}

	h.logger.Info("received structured query", "class", req.EntityClass, "label", req.EntityLabel, "location", req.Location)

	resp, err := h.opts.Agent.RunStructured(r.Context(), req)
	if err != nil {
		h.agentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.opts.Metrics == nil {
		writeError(w, http.StatusNotFound, "metrics disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.opts.Metrics.Snapshot())
}

func (h *handler) agentError(w http.ResponseWriter, err error) {
	h.logger.Error("agent request failed", "error", err)
	switch {
	case errors.Is(err, agent.ErrTimeout):
		writeError(w, http.StatusRequestTimeout, err.Error())
	case errors.Is(err, agent.ErrFatalAPI):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
