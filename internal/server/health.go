package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type HealthResponse map[string]healthResult

type healthResult struct {
	Status string `json:"status"`
}

func handleHealth(logger *slog.Logger, checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := HealthResponse{}
		status := http.StatusOK

		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Error("health check failed", "name", name, "error", err)
				resp[name] = healthResult{Status: "error"}
				status = http.StatusServiceUnavailable
				continue
			}
			resp[name] = healthResult{Status: "ok"}
		}

		writeJSON(w, status, resp)
	}
}
