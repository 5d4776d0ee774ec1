package cloudcode

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

// Endpoint is the fixed Cloud-Code streaming generateContent method.
const Endpoint = "https://daily-cloudcode-pa.sandbox.googleapis.com/v1internal:streamGenerateContent"

// Client issues Cloud-Code backend HTTP calls and classifies non-2xx
// responses into the retry/mutation taxonomy the dispatch orchestrator
// understands.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient constructs a Cloud-Code backend client.
func NewClient(httpClient *http.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = Endpoint
	}
	return &Client{httpClient: httpClient, endpoint: endpoint}
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Call sends req with accessToken as bearer auth and returns the response
// body reader on 2xx.
func (c *Client) Call(ctx context.Context, accessToken string, req Request) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 0, "encode cloud-code request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?alt=sse", bytes.NewReader(body))
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "build cloud-code request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "call cloud-code backend", err)
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
		return relayerr.New(relayerr.RateLimited, resp.StatusCode, msg).WithRetryAfter(retryAfter(resp))
	default:
		return relayerr.New(relayerr.Upstream, resp.StatusCode, fmt.Sprintf("cloud-code backend: %d %s", resp.StatusCode, msg))
	}
}

const defaultCooldown = 60 * time.Second

func retryAfter(resp *http.Response) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.Atoi(h); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCooldown
}
