// Package handlers implements the gateway's HTTP surface.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// errBadMessages keeps the original surface's fixed message for a missing
// or malformed messages array.
var errBadMessages = errors.New("Messages array is required")

type messagesRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// decodeTranscript reads a {messages: [...]} body into a canonical
// transcript, normalizing external role spellings.
func decodeTranscript(w http.ResponseWriter, r *http.Request, maxBody int64, maxMessages int) (types.Transcript, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errBadMessages
	}

	var req messagesRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Messages) == 0 {
		return nil, errBadMessages
	}
	if maxMessages > 0 && len(req.Messages) > maxMessages {
		return nil, errors.New("Too many messages")
	}

	t := make(types.Transcript, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		t = t.Append(types.Message{
			Role:    types.NormalizeRole(m.Role),
			Content: m.Content,
		})
	}
	if len(t) == 0 {
		return nil, errBadMessages
	}
	return t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
