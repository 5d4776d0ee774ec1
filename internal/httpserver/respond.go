package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/tokligence/relaymux/internal/relayerr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": map[string]any{"type": "error", "message": message}})
}

// respondDispatchError maps a dispatch-returned error onto an HTTP status
// using its relayerr.Kind when available, falling back to 500.
func respondDispatchError(w http.ResponseWriter, err error) {
	relErr, ok := relayerr.As(err)
	if !ok {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := relErr.StatusCode
	if status == 0 {
		switch relErr.Kind {
		case relayerr.Unauthorized:
			status = http.StatusUnauthorized
		case relayerr.RateLimited:
			status = http.StatusTooManyRequests
		case relayerr.ContractViolation:
			status = http.StatusBadRequest
		case relayerr.Unavailable, relayerr.ConfigMissing:
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusBadGateway
		}
	}
	respondError(w, status, relErr.Message)
}
