package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/migration-warden/internal/storage"
)

const maxRunsLimit = 500

// RunsHandler exposes the check history.
type RunsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewRunsHandler(store storage.Store, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// List returns the most recent runs. ?limit= caps the result.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.ListCheckRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list check runs", "error", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Latest returns the last run of one pull request.
func (h *RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	owner, repo := chi.URLParam(r, "owner"), chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		http.Error(w, "invalid pull request number", http.StatusBadRequest)
		return
	}

	run, err := h.store.LatestCheckRun(r.Context(), owner+"/"+repo, number)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "no runs for this pull request", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("failed to load check run", "error", err, "repo", owner+"/"+repo, "pr", number)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
