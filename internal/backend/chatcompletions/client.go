package chatcompletions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tokligence/relaymux/internal/relayerr"
)

// Endpoint is the Copilot chat-completions endpoint.
const Endpoint = "https://api.githubcopilot.com/chat/completions"

// mintEndpoint exchanges a long-lived GitHub OAuth token for a short-lived
// Copilot session token.
const mintEndpoint = "https://api.github.com/copilot_internal/v2/token"

// tokenMintSkew is how far ahead of expiry a minted token is considered
// stale and re-minted. It is shorter than the 5-minute refresh skew the
// pool applies to OAuth credentials.
const tokenMintSkew = 60 * time.Second

// Client issues chat-completions HTTP calls, minting and caching a
// short-lived bearer per long-lived token as needed.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	mintEndpoint string

	mu     sync.Mutex
	minted map[string]mintedToken
}

type mintedToken struct {
	token     string
	expiresAt time.Time
}

// NewClient constructs a chat-completions backend client.
func NewClient(httpClient *http.Client, endpoint, mintURL string) *Client {
	if endpoint == "" {
		endpoint = Endpoint
	}
	if mintURL == "" {
		mintURL = mintEndpoint
	}
	return &Client{
		httpClient:   httpClient,
		endpoint:     endpoint,
		mintEndpoint: mintURL,
		minted:       make(map[string]mintedToken),
	}
}

type mintResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// mintShortLivedToken exchanges longLivedToken for a cached short-lived
// bearer, minting a new one only when the cached one is missing or about
// to expire.
func (c *Client) mintShortLivedToken(ctx context.Context, longLivedToken string) (string, error) {
	c.mu.Lock()
	if cached, ok := c.minted[longLivedToken]; ok && time.Until(cached.expiresAt) > tokenMintSkew {
		c.mu.Unlock()
		return cached.token, nil
	}
	c.mu.Unlock()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mintEndpoint, nil)
	if err != nil {
		return "", relayerr.Wrap(relayerr.Transport, 0, "build token-mint request", err)
	}
	httpReq.Header.Set("Authorization", "token "+longLivedToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", relayerr.Wrap(relayerr.Transport, 0, "mint copilot token", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", relayerr.New(relayerr.Unauthorized, resp.StatusCode, "token mint rejected the credential")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", relayerr.New(relayerr.Upstream, resp.StatusCode, fmt.Sprintf("token mint failed: %s", string(raw)))
	}
	var mr mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", relayerr.Wrap(relayerr.Upstream, 0, "decode token-mint response", err)
	}

	c.mu.Lock()
	c.minted[longLivedToken] = mintedToken{token: mr.Token, expiresAt: time.Unix(mr.ExpiresAt, 0)}
	c.mu.Unlock()
	return mr.Token, nil
}

type errorEnvelope struct {
	Error struct {
		Message         string  `json:"message"`
		ResetsInSeconds float64 `json:"resets_in_seconds"`
	} `json:"error"`
}

// Call mints a short-lived bearer from longLivedToken, then POSTs req and
// returns the response body reader on 2xx.
func (c *Client) Call(ctx context.Context, longLivedToken string, req Request) (io.ReadCloser, error) {
	shortLived, err := c.mintShortLivedToken(ctx, longLivedToken)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 0, "encode chat-completions request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "build chat-completions request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+shortLived)
	httpReq.Header.Set("X-GitHub-Api-Version", "2025-04-01")
	httpReq.Header.Set("Editor-Version", "relaymux/1.0")
	httpReq.Header.Set("Copilot-Integration-Id", "vscode-chat")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "call chat-completions backend", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	return nil, classifyError(resp)
}

func classifyError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var env errorEnvelope
	_ = json.Unmarshal(raw, &env)
	msg := env.Error.Message
	if msg == "" {
		msg = string(raw)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return relayerr.New(relayerr.Unauthorized, resp.StatusCode, msg)
	case http.StatusTooManyRequests:
		wait := retryAfter(resp, env)
		return relayerr.New(relayerr.RateLimited, resp.StatusCode, msg).WithRetryAfter(wait)
	default:
		return relayerr.New(relayerr.Upstream, resp.StatusCode, fmt.Sprintf("chat-completions backend: %d %s", resp.StatusCode, msg))
	}
}

const defaultCooldown = 60 * time.Second

func retryAfter(resp *http.Response, env errorEnvelope) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.Atoi(h); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if env.Error.ResetsInSeconds > 0 {
		return time.Duration(env.Error.ResetsInSeconds * float64(time.Second))
	}
	return defaultCooldown
}
