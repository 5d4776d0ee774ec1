package httpserver

import (
	"net/http"
	"time"

	"github.com/tokligence/relaymux/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backends := make(map[string]int, len(s.pools))
	for name, pool := range s.pools {
		backends[string(name)] = pool.Len()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"time":        time.Now().UTC().Format(time.RFC3339),
		"environment": s.cfg.Environment,
		"uptimeMs":    time.Since(s.startedAt).Milliseconds(),
		"version":     version.FullInfo(),
		"pools":       backends,
		"rateLimit":   s.limiter.Snapshot(),
	})
}
