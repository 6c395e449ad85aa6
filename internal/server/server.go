// Package server exposes the logbook over a local HTTP API for a browser
// front end: log CRUD, exports, import, the draft slot and a server-sent
// event stream of change notifications.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/internal/draft"
	"github.com/mesh-intelligence/logbook/internal/importer"
	"github.com/mesh-intelligence/logbook/internal/metrics"
	"github.com/mesh-intelligence/logbook/internal/observer"
)

const maxRequestBodySize = 32 << 20 // 32MB; attachments travel inline.

// Deps are the collaborators the API serves from.
type Deps struct {
	Observer *observer.Observer
	Importer *importer.Importer
	Composer *draft.Composer
	Draft    *draft.Slot
	Bus      *bus.Bus
	Metrics  *metrics.Metrics // optional; /metrics is not mounted when nil
	Logger   *zap.Logger
}

// New returns the API handler.
func New(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Bus == nil {
		deps.Bus = deps.Observer.Store().Bus()
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Get("/logs", handleListLogs(deps))
	r.Post("/logs", handleCreateLog(deps))
	r.Get("/logs/{id}", handleGetLog(deps))
	r.Patch("/logs/{id}", handlePatchLog(deps))
	r.Delete("/logs/{id}", handleDeleteLog(deps))
	r.Get("/logs/{id}/markdown", handleLogMarkdown(deps))
	r.Get("/logs/{id}/robot", handleLogRobot(deps))

	r.Get("/export.json", handleExportJSON(deps))
	r.Get("/export.md", handleExportMarkdown(deps))
	r.Post("/import", handleImport(deps))

	r.Get("/projects", handleProjects(deps))
	r.Get("/tags", handleTags(deps))

	r.Get("/draft", handleGetDraft(deps))
	r.Put("/draft", handlePutDraft(deps))
	r.Delete("/draft", handleDeleteDraft(deps))
	r.Post("/draft/commit", handleCommitDraft(deps))

	r.Get("/events", handleEvents(deps))

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
