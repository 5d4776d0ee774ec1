package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/config"
)

type accountSummary struct {
	Backend       string     `json:"backend"`
	ID            string     `json:"id"`
	Email         string     `json:"email,omitempty"`
	Enabled       bool       `json:"enabled"`
	Invalid       bool       `json:"invalid"`
	InvalidReason string     `json:"invalidReason,omitempty"`
	CooldownUntil *time.Time `json:"cooldownUntil,omitempty"`
	HealthScore   int        `json:"healthScore"`
	BucketLevel   float64    `json:"bucketLevel"`
	LastUsed      *time.Time `json:"lastUsed,omitempty"`
}

// handleAccountLimits reports every configured backend's pool state, used
// by operators to see which accounts are cooling or latched invalid
// without reaching into the persisted pool files directly.
func (s *Server) handleAccountLimits(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var out []accountSummary
	for _, name := range config.AllBackends {
		pool, ok := s.poolFor(name)
		if !ok {
			continue
		}
		for _, acc := range pool.Accounts() {
			summary := accountSummary{
				Backend:       string(name),
				ID:            acc.ID,
				Email:         acc.Email,
				Enabled:       acc.Enabled,
				Invalid:       acc.Invalid,
				InvalidReason: acc.InvalidReason,
				HealthScore:   acc.Health.Score(now),
				BucketLevel:   acc.Bucket.Level(now),
			}
			if !acc.CooldownUntil.IsZero() && acc.CooldownUntil.After(now) {
				cd := acc.CooldownUntil
				summary.CooldownUntil = &cd
			}
			if !acc.LastUsed.IsZero() {
				lu := acc.LastUsed
				summary.LastUsed = &lu
			}
			out = append(out, summary)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

type accountRefRequest struct {
	Backend   string `json:"backend"`
	AccountID string `json:"accountId"`
}

func (s *Server) decodeAccountRef(w http.ResponseWriter, r *http.Request) (*accountpool.Pool, string, bool) {
	var req accountRefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, "", false
	}
	if req.Backend == "" || req.AccountID == "" {
		respondError(w, http.StatusBadRequest, "backend and accountId are required")
		return nil, "", false
	}
	pool, ok := s.poolFor(config.BackendName(req.Backend))
	if !ok {
		respondError(w, http.StatusNotFound, "unknown backend "+req.Backend)
		return nil, "", false
	}
	return pool, req.AccountID, true
}

// handleRefreshToken runs the pool's credential refresh path for one
// account: the credential is refreshed when it is within the refresh
// horizon of expiry and left unchanged otherwise. A refresh failure gets
// the same classification a dispatch attempt would have applied.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	pool, accountID, ok := s.decodeAccountRef(w, r)
	if !ok {
		return
	}
	if _, err := pool.GetTokenForAccount(r.Context(), accountID); err != nil {
		respondDispatchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"refreshed": accountID})
}

// handleClearCache clears the invalid latch on one account, letting it back
// into rotation after an operator has fixed whatever made it 401/403.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	pool, accountID, ok := s.decodeAccountRef(w, r)
	if !ok {
		return
	}
	if err := pool.ClearInvalid(accountID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cleared": accountID})
}

// handleClearRateLimit restores the inbound limiter to full capacity, the
// operator hook for a local client that pinned itself against the ceiling
// and needs to resume immediately rather than wait out the natural refill.
func (s *Server) handleClearRateLimit(w http.ResponseWriter, r *http.Request) {
	s.limiter.Reset()
	respondJSON(w, http.StatusOK, map[string]any{"cleared": "rate-limit"})
}
