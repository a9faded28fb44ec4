package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
	"github.com/dome317/lead-intelligence-bot/pkg/store"
)

// LeadsHandler serves the dashboard's polling read: the full lead list,
// derived stats, and notifications, all newest-first. Side-effect free.
type LeadsHandler struct {
	Store  store.Store
	Logger *slog.Logger
}

type leadsResponse struct {
	Leads         []types.Lead         `json:"leads"`
	Stats         types.Stats          `json:"stats"`
	Notifications []types.Notification `json:"notifications"`
}

func (h LeadsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	leads, err := h.Store.Leads(ctx)
	if err != nil {
		h.Logger.Error("load leads failed", "error", err)
		apierror.Write(w, http.StatusInternalServerError, "Failed to load leads")
		return
	}
	notifs, err := h.Store.Notifications(ctx)
	if err != nil {
		h.Logger.Error("load notifications failed", "error", err)
		apierror.Write(w, http.StatusInternalServerError, "Failed to load leads")
		return
	}

	if leads == nil {
		leads = []types.Lead{}
	}
	if notifs == nil {
		notifs = []types.Notification{}
	}

	writeJSON(w, http.StatusOK, leadsResponse{
		Leads:         leads,
		Stats:         types.ComputeStats(leads),
		Notifications: notifs,
	})
}
