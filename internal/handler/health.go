package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is implemented by *store.MongoDB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealth adds the liveness and readiness probes. Readiness fails
// while the database is unreachable.
func RegisterHealth(mux *http.ServeMux, db Pinger) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			requestLog(r).WithError(err).Warn("Readiness check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
