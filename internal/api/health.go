package api

import (
	"net/http"

	"github.com/leadscout/leadscout/internal/log"
)

// health is a simple liveness endpoint for Docker/Kubernetes probes.
// Returns 200 OK with {"status":"ok"}.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

// readiness reports whether the server can serve chat traffic, along with the
// model and tools it is wired to.
func readiness(modelName string, toolNames []string, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ready",
			"model":  modelName,
			"tools":  toolNames,
		}, logger)
	}
}
