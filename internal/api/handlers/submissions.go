package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// SubmissionsHandler serves GET /v1/submissions.
type SubmissionsHandler struct {
	Store state.Store
}

func (h SubmissionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	subs, err := h.Store.ListSubmissions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_submissions_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": subs,
	})
}

// SubmissionDetailHandler serves GET /v1/submissions/{run_id}.
type SubmissionDetailHandler struct {
	Store state.Store
}

func (h SubmissionDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimSpace(r.PathValue("run_id"))
	if runID == "" {
		writeError(w, http.StatusBadRequest, "invalid_run_id", "run_id missing or invalid")
		return
	}

	sub, ok, err := h.Store.GetSubmission(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get_submission_failed", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"submission": sub,
		"pending":    sub.Pending(),
	})
}
