package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nightfallstudio/bugboard/internal/logging"
	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// Error codes carried in the envelope. Clients branch on these; the
// messages are for humans.
const (
	codeValidation          = "validation_error"
	codeRateLimited         = "rate_limited"
	codeNotFound            = "not_found"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamRejected    = "upstream_rejected"
	codeInternal            = "internal_error"
)

// envelope is the uniform response shape for every gateway route.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps v in a success envelope.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, envelope{Success: true, Data: v})
}

// writeRaw serves a previously serialized response body byte-identical to
// what was cached.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError wraps code and message in a failure envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Success: false, Error: &envelopeError{Code: code, Message: message}})
}

// writeUpstreamError maps a typed upstream error onto the envelope.
// Messages stay generic; neither credentials nor stack traces leak out.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var rejected *upstream.RejectedError
	var unavailable *upstream.UnavailableError
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "issue not found")
	case errors.As(err, &rejected):
		logging.Error("upstream rejected request", "status", rejected.StatusCode, "message", rejected.Message)
		writeError(w, rejected.StatusCode, codeUpstreamRejected, rejected.Message)
	case errors.As(err, &unavailable):
		logging.Error("upstream unavailable", "error", unavailable.Err)
		writeError(w, http.StatusBadGateway, codeUpstreamUnavailable, "the issue tracker is currently unreachable, please try again later")
	default:
		logging.Error("handler failed", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
