package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/tokligence/relaymux/internal/canonical"
)

// handleMessages implements the single Anthropic-Messages-compatible
// endpoint every backend is dispatched behind. The request body already
// matches canonical.Request's wire shape field-for-field, so no per-backend
// translation happens here; internal/dispatch and the backend adapters own
// that.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var req canonical.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		respondError(w, http.StatusBadRequest, "model is required")
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	if req.Stream {
		s.streamMessages(w, r, req)
		return
	}
	s.aggregateMessages(w, r, req)
}

func (s *Server) aggregateMessages(w http.ResponseWriter, r *http.Request, req canonical.Request) {
	collector := canonical.NewCollector(req.Model)
	if err := s.orchestrator.Dispatch(r.Context(), req, collector.Collect); err != nil {
		respondDispatchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, collector.Response())
}

// streamMessages writes each canonical.Event as one SSE "event:"/"data:"
// pair as it arrives: text/event-stream headers set up front, one flush per
// event so the client sees each block as soon as it is produced.
func (s *Server) streamMessages(w http.ResponseWriter, r *http.Request, req canonical.Request) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	emit := newSSEEmitter(w, flusher)

	if err := s.orchestrator.Dispatch(r.Context(), req, emit); err != nil {
		// The stream headers are already sent; surface the failure as a
		// best-effort SSE error event rather than an HTTP error status.
		emit(canonical.Event{Type: "error", Payload: map[string]any{
			"type":  "error",
			"error": dispatchErrorPayload(err),
		}})
	}
}
