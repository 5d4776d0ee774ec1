// Package dispatch implements the model-family router and the
// retry/rotation loop that turns one canonical request into zero or more
// backend attempts against a per-backend account pool.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/config"
	"github.com/tokligence/relaymux/internal/logx"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Backend is the dispatch orchestrator's view of a wire-protocol adapter:
// build a wire request from a canonical one, call the backend, and drain
// its response into canonical events. Every internal/backend/* package
// exposes a Runner satisfying this. Call receives the account's raw
// Credential rather than a bearer string, since the credential shape is
// backend-specific (OAuth token, API-token-plus-machine-id, ...); each
// Runner type-asserts to the concrete type it knows how to use.
type Backend interface {
	BuildRequest(model string, req canonical.Request) (any, error)
	Call(ctx context.Context, cred accountpool.Credential, wireReq any) (io.ReadCloser, error)
	StreamToCanonical(ctx context.Context, body io.Reader, state *canonical.StreamState) error
}

// route bundles one backend's pool with its wire adapter.
type route struct {
	name    config.BackendName
	pool    *accountpool.Pool
	backend Backend
}

// Orchestrator holds one route per configured backend and runs the
// select -> build -> call -> classify retry loop described for every
// incoming request.
type Orchestrator struct {
	routes          map[config.BackendName]*route
	knownModels     []string
	defaultCooldown time.Duration
	abortWait       time.Duration
	log             *logx.Logger
}

// NewOrchestrator builds an Orchestrator from a pool and backend adapter
// per configured wire dialect.
func NewOrchestrator(cfg config.GatewayConfig, pools map[config.BackendName]*accountpool.Pool, backends map[config.BackendName]Backend, log *logx.Logger) *Orchestrator {
	if log == nil {
		log = logx.Nop()
	}
	o := &Orchestrator{
		routes:          make(map[config.BackendName]*route),
		defaultCooldown: time.Duration(cfg.DefaultCooldownMs) * time.Millisecond,
		abortWait:       60 * time.Second,
		log:             log,
	}
	for name, pool := range pools {
		backend, ok := backends[name]
		if !ok {
			continue
		}
		o.routes[name] = &route{name: name, pool: pool, backend: backend}
		if bc, ok := cfg.Backends[name]; ok {
			o.knownModels = append(o.knownModels, bc.Models...)
		}
	}
	return o
}

// routeModel prefix-matches model against the declared family table.
// Unknown families surface as ContractViolation with the closest known
// model name suggested, so a typo does not require a round trip to
// discover the valid set.
func (o *Orchestrator) routeModel(model string) (config.BackendName, error) {
	switch {
	case strings.HasPrefix(model, "cu/") || strings.HasPrefix(model, "cursor/"):
		return config.BackendCursor, nil
	case strings.HasPrefix(model, "gh/") || strings.HasPrefix(model, "github/"):
		return config.BackendChatCompletions, nil
	case strings.HasPrefix(model, "claude-") || strings.HasPrefix(model, "gemini-"):
		return config.BackendCloudCode, nil
	case strings.HasPrefix(model, "gpt-5") || strings.Contains(model, "codex"):
		return config.BackendResponses, nil
	default:
		msg := fmt.Sprintf("unknown model family %q", model)
		if suggestion := o.suggestModel(model); suggestion != "" {
			msg = fmt.Sprintf("%s; did you mean %q?", msg, suggestion)
		}
		return "", relayerr.New(relayerr.ContractViolation, 400, msg)
	}
}

// suggestModel returns the closest known model id by edit distance, or ""
// if there is nothing close enough to be a useful suggestion.
func (o *Orchestrator) suggestModel(model string) string {
	best := ""
	bestDist := -1
	for _, known := range o.knownModels {
		d := levenshtein.ComputeDistance(model, known)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = known
		}
	}
	if bestDist < 0 || bestDist > len(model) {
		return ""
	}
	return best
}

// Dispatch runs the retry/rotation loop for req and delivers the winning
// attempt's canonical events to emit, in order, exactly once. Failed
// attempts are buffered and discarded rather than partially emitted, so a
// mid-stream failure on one account never corrupts what the client sees
// from the account that eventually succeeds.
func (o *Orchestrator) Dispatch(ctx context.Context, req canonical.Request, emit func(canonical.Event)) error {
	backendName, err := o.routeModel(req.Model)
	if err != nil {
		return err
	}
	rt, ok := o.routes[backendName]
	if !ok || rt.pool.Len() == 0 {
		return relayerr.New(relayerr.ConfigMissing, 503, fmt.Sprintf("no accounts configured for backend %q", backendName))
	}

	maxAttempts := rt.pool.Len() + 1
	if maxAttempts < 3 {
		maxAttempts = 3
	}

	var lastErr error
	for attempts := 0; attempts < maxAttempts; {
		outcome := rt.pool.Select(req.Model)
		if !outcome.Selected {
			if outcome.Wait > o.abortWait {
				resetMins := int(outcome.Wait / time.Minute)
				if resetMins < 1 {
					resetMins = 1
				}
				return relayerr.New(relayerr.Unavailable, 503, fmt.Sprintf("RESOURCE_EXHAUSTED: all accounts cooling, retry in ~%d min", resetMins))
			}
			if !rt.pool.HasRecoverablePath() {
				// Every remaining account is latched Invalid or disabled;
				// none of them clear on their own, so waiting out
				// outcome.Wait (often ~0 for an Invalid account whose
				// bucket is full) would spin forever instead of ever
				// hitting the attempt budget below.
				if lastErr != nil {
					return relayerr.Wrap(relayerr.Upstream, 0, "failed after retries", lastErr)
				}
				return relayerr.New(relayerr.Unauthorized, 401, "no usable accounts: all accounts invalid or disabled")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(outcome.Wait + 500*time.Millisecond):
			}
			continue
		}
		attempts++

		if err := o.attempt(ctx, rt, outcome.Account, req, emit); err != nil {
			if relErr, ok := relayerr.As(err); ok && relErr.Kind == relayerr.ContractViolation {
				return err
			}
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return relayerr.Wrap(relayerr.Upstream, 0, "failed after retries", lastErr)
	}
	return relayerr.New(relayerr.Upstream, 0, "failed after retries")
}

// attempt runs one select-account's worth of build/call/stream, mutating
// the pool according to the classified outcome. It returns nil only when
// the buffered events were successfully replayed to emit.
func (o *Orchestrator) attempt(ctx context.Context, rt *route, accountID string, req canonical.Request, emit func(canonical.Event)) error {
	cred, err := rt.pool.GetTokenForAccount(ctx, accountID)
	if err != nil {
		o.classify(rt, accountID, err)
		return err
	}

	wireReq, err := rt.backend.BuildRequest(req.Model, req)
	if err != nil {
		// ContractViolation from the adapter itself: no backend was
		// contacted, and Dispatch returns it without retrying.
		return err
	}

	body, err := rt.backend.Call(ctx, cred, wireReq)
	if err != nil {
		o.classify(rt, accountID, err)
		return err
	}
	defer body.Close()

	var buffered []canonical.Event
	state := canonical.NewStreamState(req.Model, uuid.New().String(), func(e canonical.Event) {
		buffered = append(buffered, e)
	})
	if err := rt.backend.StreamToCanonical(ctx, body, state); err != nil {
		if ctx.Err() != nil && len(buffered) == 0 {
			rt.pool.RefundToken(accountID)
			return ctx.Err()
		}
		o.classify(rt, accountID, err)
		return err
	}
	if len(buffered) == 0 {
		err := relayerr.New(relayerr.StreamEmpty, 502, "backend produced no content")
		o.classify(rt, accountID, err)
		return err
	}

	for _, e := range buffered {
		emit(e)
	}
	rt.pool.RecordSuccess(accountID)
	return nil
}

// classify applies the retry/mutation policy for a failed attempt: 401/403
// latches the account invalid, 429 puts it on cooldown, everything else is
// a plain recorded failure (health decay only, still eligible for reselection).
func (o *Orchestrator) classify(rt *route, accountID string, err error) {
	relErr, ok := relayerr.As(err)
	if !ok {
		rt.pool.RecordFailure(accountID)
		return
	}
	switch relErr.Kind {
	case relayerr.Unauthorized:
		rt.pool.MarkInvalid(accountID, relErr.Message)
	case relayerr.RateLimited:
		wait := relErr.RetryAfter
		if wait <= 0 {
			wait = o.defaultCooldown
		}
		rt.pool.MarkRateLimited(accountID, wait)
	default:
		rt.pool.RecordFailure(accountID)
	}
}
