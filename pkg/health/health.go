package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// StatusFunc returns a JSON-encodable view of the daemon's current state
type StatusFunc func() interface{}

// Checker provides health check functionality for the daemon
type Checker struct {
	status  StatusFunc
	started time.Time
	logger  *slog.Logger
}

// NewChecker creates a new health checker with the given status source
func NewChecker(status StatusFunc, logger *slog.Logger) *Checker {
	return &Checker{
		status:  status,
		started: time.Now(),
		logger:  logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    string      `json:"uptime,omitempty"`
	State     interface{} `json:"state,omitempty"`
}

// HandlerFunc returns an HTTP handler function for health checks.
// Returns 200 if the process is alive without inspecting any state.
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		h.write(w, http.StatusOK, response)
	}
}

// StatusHandlerFunc returns a handler that includes the control loop state
func (h *Checker) StatusHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Uptime:    time.Since(h.started).Round(time.Second).String(),
		}
		if h.status != nil {
			response.State = h.status()
		}
		h.write(w, http.StatusOK, response)
	}
}

// Mux returns a ServeMux with /health and /status registered
func (h *Checker) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandlerFunc())
	mux.HandleFunc("/status", h.StatusHandlerFunc())
	return mux
}

func (h *Checker) write(w http.ResponseWriter, code int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
