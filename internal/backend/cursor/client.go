package cursor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/tokligence/relaymux/internal/relayerr"
)

const defaultCooldown = 60 * time.Second

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// Client issues binary-framed backend calls over an HTTP/2-preferred
// transport (falling back to HTTP/1.1 when the server does not negotiate
// h2), attaching the checksum and request-identity headers this backend
// requires on every call. Unlike the OAuth-backed backends, every
// credential value this backend needs (API token, machine-id, ghost-mode)
// travels per-call from the caller's account credential rather than being
// baked into the Client at construction, since a single Cursor backend
// pool holds several accounts, each with its own machine identity.
type Client struct {
	httpClient *http.Client
	endpoint   string
	vendor     string
}

// NewClient constructs a binary-framed backend client. vendor names the
// checksum header ("Cursor" -> "X-Cursor-Checksum").
func NewClient(endpoint, vendor string) (*Client, error) {
	transport := &http.Transport{TLSClientConfig: &tls.Config{}}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "configure http2 transport", err)
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		endpoint:   endpoint,
		vendor:     vendor,
	}, nil
}

// Call frames req as a single JSON frame, posts it with the required
// identity headers, and returns the response body reader on 2xx for the
// caller to decode frame-by-frame via StreamToCanonical. apiToken and
// machineID come from the dispatching account's Credential; ghostMode
// requests the backend not persist any trace of this call.
func (c *Client) Call(ctx context.Context, apiToken, machineID string, ghostMode bool, req IntermediateRequest, gzipRequest bool) (io.ReadCloser, error) {
	payload, err := encodeJSON(req)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 0, "encode cursor request", err)
	}
	frame, err := EncodeFrame(payload, gzipRequest)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 0, "frame cursor request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(frame))
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "build cursor request", err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("Authorization", "Bearer "+apiToken)
	httpReq.Header.Set("x-client-key", ClientKey(apiToken))
	httpReq.Header.Set("x-request-id", uuid.New().String())
	httpReq.Header.Set("x-session-id", uuid.New().String())
	httpReq.Header.Set("x-cursor-config-version", uuid.New().String())
	httpReq.Header.Set("x-amzn-trace-id", uuid.New().String())
	httpReq.Header.Set(ChecksumHeaderName(c.vendor), BuildChecksum(machineID, time.Now()))
	if ghostMode {
		httpReq.Header.Set("x-ghost-mode", "true")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.Transport, 0, "call cursor backend", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.Body, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	err = classifyHTTPError(resp.StatusCode, string(raw))
	if relErr, ok := relayerr.As(err); ok && relErr.Kind == relayerr.RateLimited {
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil {
			relErr.WithRetryAfter(time.Duration(secs) * time.Second)
		}
	}
	return nil, err
}

func encodeJSON(req IntermediateRequest) ([]byte, error) {
	return json.Marshal(req)
}

func classifyHTTPError(status int, body string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return relayerr.New(relayerr.Unauthorized, status, body)
	case http.StatusTooManyRequests:
		return relayerr.New(relayerr.RateLimited, status, body).WithRetryAfter(defaultCooldown)
	default:
		return relayerr.New(relayerr.Upstream, status, body)
	}
}
