// Package api holds the shared JSON response helpers. Every handler
// shapes success and error bodies through these so the error kind to
// HTTP status mapping stays in one place.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/domain"
)

// ErrorResponse is the uniform error body
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Ignore encode error - already committed response
}

// WriteError maps the error's kind to an HTTP status and writes the
// uniform error body. Unclassified errors become 500s with a generic
// message so internals never leak to callers.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("kind", string(kind)).Msg("Request rejected")
	}

	message := err.Error()
	if kind == domain.KindInternal {
		message = "internal error"
	}

	WriteJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation, domain.KindInsufficientFunds, domain.KindInsufficientQuantity:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindCollaborator:
		return http.StatusBadGateway
	case domain.KindPartialUpdate:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
