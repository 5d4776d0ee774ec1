package httpserver

import (
	"net/http"

	"github.com/tokligence/relaymux/internal/config"
)

// modelEntry mirrors the shape the Anthropic /v1/models list uses closely
// enough for downstream tooling that already speaks that dialect to work
// unmodified against this gateway.
type modelEntry struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	var models []modelEntry
	for _, name := range config.AllBackends {
		bc, ok := s.cfg.Backends[name]
		if !ok {
			continue
		}
		for _, id := range bc.Models {
			models = append(models, modelEntry{ID: id, Backend: string(name)})
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": models})
}
