package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
	"github.com/dome317/lead-intelligence-bot/pkg/dispatch"
	"github.com/dome317/lead-intelligence-bot/pkg/extract"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/mw"
	"github.com/dome317/lead-intelligence-bot/pkg/store"
)

// ExtractLeadHandler runs extraction over a caller-supplied transcript,
// persists the lead, and enqueues downstream forwarding.
type ExtractLeadHandler struct {
	Config     config.Config
	Extractor  *extract.Extractor // nil when the credential is unconfigured
	Store      store.Store
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger

	// Source tags leads created through this surface.
	Source string

	// Now is replaceable in tests.
	Now func() time.Time
}

func (h ExtractLeadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Extractor == nil {
		apierror.Write(w, http.StatusInternalServerError, "ANTHROPIC_API_KEY not configured")
		return
	}

	transcript, err := decodeTranscript(w, r, h.Config.MaxBodyBytes, h.Config.MaxMessages)
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.ExtractTimeout)
	defer cancel()

	lead, err := h.Extractor.Extract(ctx, transcript)
	if err != nil {
		h.Logger.Error("lead extraction failed", "request_id", reqID, "error", err)
		status, msg := apierror.FromError(err)
		apierror.Write(w, status, msg)
		return
	}

	lead.Source = h.Source
	lead.Timestamp = h.now().UTC()

	stored, err := h.Store.AddLead(ctx, lead)
	if err != nil {
		h.Logger.Error("lead persist failed", "request_id", reqID, "error", err)
		apierror.Write(w, http.StatusInternalServerError, "Failed to store lead")
		return
	}

	// Forwarding is best-effort and must never block or fail persistence.
	if h.Dispatcher != nil && h.Dispatcher.Enabled() {
		h.Dispatcher.Enqueue(stored)
	}

	h.Logger.Info("lead captured",
		"request_id", reqID,
		"lead_id", stored.ID,
		"score", stored.Score,
		"label", stored.ScoreLabel,
	)

	writeJSON(w, http.StatusOK, struct {
		Lead types.Lead `json:"lead"`
	}{Lead: stored})
}

func (h ExtractLeadHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
