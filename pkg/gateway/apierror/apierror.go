// Package apierror converts component errors into the gateway's JSON error
// responses. Every upstream failure is caught at the boundary of the
// component that made the call and surfaces here as a structured response;
// nothing propagates past the API boundary as an unhandled fault.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/completion"
	"github.com/dome317/lead-intelligence-bot/pkg/extract"
)

// Envelope is the wire shape: {"error": "..."}.
type Envelope struct {
	Error string `json:"error"`
}

// Write emits a JSON error response.
func Write(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: message})
}

// FromError maps an error to an HTTP status and a client-safe message.
// Raw upstream detail stays in the logs, not the response.
func FromError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "upstream timeout"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "request cancelled"
	}

	var extErr *extract.Error
	if errors.As(err, &extErr) {
		return http.StatusInternalServerError, "Failed to extract lead data"
	}

	var compErr *completion.Error
	if errors.As(err, &compErr) {
		switch compErr.Type {
		case completion.ErrAuthentication, completion.ErrPermission:
			return http.StatusInternalServerError, "upstream authentication failed"
		case completion.ErrRateLimit, completion.ErrOverloaded:
			return http.StatusServiceUnavailable, "upstream is overloaded"
		case completion.ErrInvalidRequest:
			return http.StatusBadRequest, compErr.Message
		default:
			return http.StatusBadGateway, "upstream error"
		}
	}

	return http.StatusInternalServerError, "Internal server error"
}
