package handlers

import (
	"net/http"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/state"
)

type RouterConfig struct {
	Store state.Store

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// Protect wraps the /v1 routes, e.g. with bearer auth.
	Protect func(http.Handler) http.Handler
}

// NewRouter wires the read-only submissions API.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	protect := cfg.Protect
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.Handle("GET /v1/submissions", protect(SubmissionsHandler{Store: cfg.Store}))
	mux.Handle("GET /v1/submissions/{run_id}", protect(SubmissionDetailHandler{Store: cfg.Store}))

	return mux
}
