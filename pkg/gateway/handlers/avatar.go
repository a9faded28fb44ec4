package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/avatar"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
)

// AvatarSessionHandler mints a session token for the external voice/video
// avatar channel. The channel itself is opaque: the browser connects to the
// vendor directly with the token.
type AvatarSessionHandler struct {
	Avatar *avatar.Client // nil when the credential is unconfigured
	Logger *slog.Logger
}

func (h AvatarSessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Avatar == nil {
		apierror.Write(w, http.StatusInternalServerError, "ANAM_API_KEY not configured")
		return
	}

	token, err := h.Avatar.CreateSessionToken(r.Context())
	if err != nil {
		h.Logger.Error("avatar session token failed", "error", err)
		apierror.Write(w, http.StatusInternalServerError, "Failed to create session token")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		SessionToken string `json:"sessionToken"`
	}{SessionToken: token})
}
