package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/export"
	"github.com/mesh-intelligence/logbook/internal/logstore"
	"github.com/mesh-intelligence/logbook/internal/urdf"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

func handleListLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		logs := logstore.Filter(deps.Observer.Logs(), logstore.Query{
			Project: q.Get("project"),
			Tag:     q.Get("tag"),
			Text:    q.Get("q"),
		})
		writeJSON(w, http.StatusOK, logs)
	}
}

func handleCreateLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f types.Fields
		if !decodeBody(w, r, &f) {
			return
		}
		if err := f.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		l, err := deps.Observer.Create(f)
		if err != nil {
			deps.Logger.Error("creating log", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "creating log: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

// lookup resolves the {id} parameter, writing a 404 when it is unknown.
func lookup(deps Deps, w http.ResponseWriter, r *http.Request) (types.Log, bool) {
	id := chi.URLParam(r, "id")
	l, ok := deps.Observer.Get(id)
	if !ok {
		httpError(w, http.StatusNotFound, "not_found_error", "log %q not found", id)
		return types.Log{}, false
	}
	return l, true
}

func handleGetLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func handlePatchLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		var p types.Patch
		if !decodeBody(w, r, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := deps.Observer.Update(l.ID, p); err != nil {
			deps.Logger.Error("updating log", zap.String("id", l.ID), zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "updating log: %v", err)
			return
		}
		updated, ok := deps.Observer.Get(l.ID)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "log %q not found", l.ID)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDeleteLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		if err := deps.Observer.Remove(l.ID); err != nil {
			deps.Logger.Error("deleting log", zap.String("id", l.ID), zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "deleting log: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLogMarkdown(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(l)))
		w.Write([]byte(export.ToMarkdown(l)))
	}
}

func handleLogRobot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		fragment, found := urdf.Extract(l.Body)
		if !found {
			httpError(w, http.StatusNotFound, "not_found_error", "log %q has no robot description", l.ID)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(fragment))
	}
}

func handleExportJSON(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="logbook.json"`)
		if err := export.WriteJSON(w, deps.Observer.Logs()); err != nil {
			deps.Logger.Warn("writing export", zap.Error(err))
		}
	}
}

func handleExportMarkdown(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="logbook.md"`)
		w.Write([]byte(export.ConcatMarkdown(deps.Observer.Logs())))
	}
}

type importResponse struct {
	Imported int    `json:"imported"`
	Dropped  int    `json:"dropped"`
	Message  string `json:"message"`
}

func handleImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		st := deps.Importer.Import(r.Body)
		if deps.Metrics != nil {
			deps.Metrics.ObserveImport(st)
		}
		if st.Err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(st.Err, &tooLarge) {
				httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "%s", st.Message())
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s", st.Message())
			return
		}
		deps.Observer.Refresh()
		writeJSON(w, http.StatusOK, importResponse{Imported: st.Imported, Dropped: st.Dropped, Message: st.Message()})
	}
}

func handleProjects(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects := logstore.Projects(deps.Observer.Logs())
		if projects == nil {
			projects = []logstore.ProjectSummary{}
		}
		writeJSON(w, http.StatusOK, projects)
	}
}

func handleTags(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, logstore.TagOptions(deps.Observer.Logs()))
	}
}
