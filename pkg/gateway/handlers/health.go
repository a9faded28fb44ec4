package handlers

import (
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
)

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func (HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the configuration is usable and which store
// backend was selected at startup.
type ReadyHandler struct {
	Config       config.Config
	StoreBackend string
}

type readyResponse struct {
	Status string   `json:"status"`
	Store  string   `json:"store"`
	Issues []string `json:"issues,omitempty"`
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	issues := h.Config.Issues()
	resp := readyResponse{Status: "ready", Store: h.StoreBackend, Issues: issues}
	status := http.StatusOK
	if len(issues) > 0 {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
