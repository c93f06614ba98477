package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/R3E-Network/submission_review/internal/logging"
)

// ErrorBody is the JSON error envelope returned by every endpoint.
type ErrorBody struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes the error envelope, tagging it with the request's
// trace id when one is present.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	body := ErrorBody{Error: ErrorDetail{Code: code, Message: message, Details: details}}
	if r != nil {
		body.TraceID = logging.GetTraceID(r.Context())
	}
	WriteJSON(w, status, body)
}

// Forbidden writes a 403 envelope.
func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Access denied"
	}
	WriteErrorResponse(w, r, http.StatusForbidden, "FORBIDDEN", message, nil)
}
