package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tokligence/relaymux/internal/relayerr"
)

// Endpoint is the fixed Codex Responses wire endpoint.
const Endpoint = "https://chatgpt.com/backend-api/codex/responses"

// Client issues Responses-backend HTTP calls and classifies non-2xx
// responses into the retry/mutation taxonomy the dispatch orchestrator
// understands.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient constructs a Responses backend client against the fixed
// endpoint, or a caller-supplied override for testing.
func NewClient(httpClient *http.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = Endpoint
	}
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

// errorEnvelope is the shape of a non-2xx JSON error body.
type errorEnvelope struct {
	Error struct {
		Message         string  `json:"message"`
		Type            string  `json:"type"`
		ResetsInSeconds float64 `json:"resets_in_seconds"`
		ResetsAt        string  `json:"resets_at"`
	} `json:"error"`
}

// Call sends req with accessToken as bearer auth and returns the response
// body reader on 2xx. The caller is responsible for closing the body via
// the returned closer once done reading (StreamToCanonical drains it to
// EOF; callers that abort early must still close it to release the
// connection).
func (c *Client) Call(ctx context.Context, accessToken string, req Request) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 0, "encode responses request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "build responses request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "call responses backend", err)
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
		return relayerr.New(relayerr.Upstream, resp.StatusCode, fmt.Sprintf("responses backend: %d %s", resp.StatusCode, msg))
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
	if env.Error.ResetsAt != "" {
		if t, err := time.Parse(time.RFC3339, env.Error.ResetsAt); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	return defaultCooldown
}
