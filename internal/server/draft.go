package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

type draftResponse struct {
	types.Draft
	Status string `json:"status,omitempty"`
}

func handleGetDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := deps.Draft.Load()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no draft")
			return
		}
		writeJSON(w, http.StatusOK, draftResponse{Draft: d, Status: deps.Composer.Status()})
	}
}

// handlePutDraft records the form state; the autosaver persists it after
// the debounce delay.
func handlePutDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f types.DraftFields
		if !decodeBody(w, r, &f) {
			return
		}
		deps.Composer.Change(f)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleDeleteDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Composer.Discard(); err != nil {
			deps.Logger.Error("discarding draft", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "discarding draft: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCommitDraft(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := deps.Composer.Commit()
		if errors.Is(err, types.ErrTitleRequired) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			deps.Logger.Error("committing draft", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "server_error", "committing draft: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}
