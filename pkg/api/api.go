package api

import (
	"encoding/json"
	"net/http"

	"github.com/lucid-vigil/chaff/pkg/scheduler"
	"github.com/rs/zerolog/log"
)

// StatusSnapshot is the JSON document served by /status.
type StatusSnapshot struct {
	RunID string          `json:"run_id"`
	Stats scheduler.Stats `json:"stats"`
}

// StartAPIServer starts the optional status endpoint in the calling
// goroutine. It provides health checks (/healthz) and run counters
// (/status) for the lab operator; the generator runs fine without it.
func StartAPIServer(port, runID string, stats func() scheduler.Stats) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/status", statusHandler(runID, stats))

	log.Info().Msgf("Status API starting on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error().Err(err).Msg("Status API failed.")
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func statusHandler(runID string, stats func() scheduler.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(StatusSnapshot{RunID: runID, Stats: stats()})
	}
}
