package completion

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// ErrorType categorizes upstream errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
	ErrUpstream       ErrorType = "upstream_error"
)

// Error represents a failure reported by the completion upstream, either as
// an HTTP error response or as an error event mid-stream. There is no retry
// policy: callers surface it once and move on.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion: %s: %s", e.Type, e.Message)
}

// upstreamError is the upstream's error envelope.
type upstreamError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// parseHTTPError decodes a non-2xx upstream response.
func parseHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var ue upstreamError
	if err := json.Unmarshal(body, &ue); err != nil || ue.Error.Message == "" {
		return &Error{
			Type:    ErrUpstream,
			Message: fmt.Sprintf("upstream status %d", resp.StatusCode),
		}
	}

	return &Error{
		Type:    errorTypeFor(ue.Error.Type),
		Message: ue.Error.Message,
	}
}

func errorTypeFor(t string) ErrorType {
	switch ErrorType(t) {
	case ErrInvalidRequest, ErrAuthentication, ErrPermission, ErrNotFound,
		ErrRateLimit, ErrAPI, ErrOverloaded:
		return ErrorType(t)
	default:
		return ErrUpstream
	}
}
