// Package httputil writes the JSON bodies every handler answers with, so the
// wire error contract lives in one place.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "compass/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's domain code to a status and writes the wire error
// body. Server-side failures answer with the bare code: their messages
// describe infrastructure and belong in logs, not responses.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	resp := errorResponse{Error: wireCode(code)}
	if status < http.StatusInternalServerError {
		resp.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// wireCode is the externally visible error identifier. Internal gets its own
// spelling so the wire contract is independent of the domain code.
func wireCode(code dErrors.Code) string {
	if code == dErrors.CodeInternal {
		return "internal_error"
	}
	return string(code)
}
