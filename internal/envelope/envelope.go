// Package envelope provides the uniform response envelope every gateway
// endpoint emits, for success and failure alike.
package envelope

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/relgov/gateway/internal/gwerror"
	"github.com/relgov/gateway/internal/observability"
)

// ErrorBody is the error portion of the envelope.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Envelope is the uniform response body.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	RequestID string      `json:"requestId"`
	Timestamp string      `json:"timestamp"`
}

// Success builds a success envelope for the given request id.
func Success(requestID string, data interface{}) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Failure builds a failure envelope from a classified gateway error.
func Failure(requestID string, gwErr *gwerror.Error) Envelope {
	return Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    gwErr.Code,
			Message: gwErr.Message,
			Details: gwErr.Details,
		},
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// WriteSuccess serializes a success envelope with the given status.
func WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	write(w, status, Success(observability.RequestIDFromContext(r.Context()), data))
}

// WriteError serializes a failure envelope using the error's own status.
func WriteError(w http.ResponseWriter, r *http.Request, gwErr *gwerror.Error) {
	write(w, gwErr.Status, Failure(observability.RequestIDFromContext(r.Context()), gwErr))
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
