package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client performs the code exchange and refresh-token grants against one
// backend's OAuth token endpoint, encoding the request body the way that
// endpoint expects (JSON or form) per cfg.Encoding.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient returns a Client bound to cfg, sharing httpClient (nil uses
// http.DefaultClient).
func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Exchange performs the grant_type=authorization_code exchange, including
// the PKCE code_verifier.
func (c *Client) Exchange(ctx context.Context, code string, pkce PKCEPair) (*Token, error) {
	params := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  RedirectURI(c.cfg.CallbackPort),
		"client_id":     c.cfg.ClientID,
		"code_verifier": pkce.Verifier,
	}
	if c.cfg.ClientSecret != "" {
		params["client_secret"] = c.cfg.ClientSecret
	}
	return c.grant(ctx, params)
}

// Refresh performs the grant_type=refresh_token grant, reusing the
// existing refresh token if the response omits a new one. A non-2xx
// response is a non-fatal error: the caller (accountpool.Pool) decides
// whether to latch the account invalid.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	params := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     c.cfg.ClientID,
	}
	if c.cfg.ClientSecret != "" {
		params["client_secret"] = c.cfg.ClientSecret
	}
	tok, err := c.grant(ctx, params)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) grant(ctx context.Context, params map[string]string) (*Token, error) {
	req, err := c.buildRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("oauth: token endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("oauth: decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("oauth: token endpoint returned no access_token")
	}

	tok := &Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		IDToken:      payload.IDToken,
		ExpiresAt:    time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}
	if tok.IDToken != "" {
		if email, sub, exp, ok := ParseIDTokenClaims(tok.IDToken); ok {
			tok.Email = email
			tok.Subject = sub
			if !exp.IsZero() {
				tok.ExpiresAt = exp
			}
		}
	}
	return tok, nil
}

func (c *Client) buildRequest(ctx context.Context, params map[string]string) (*http.Request, error) {
	var req *http.Request
	var err error
	switch c.cfg.Encoding {
	case EncodingForm:
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		body, marshalErr := json.Marshal(params)
		if marshalErr != nil {
			return nil, marshalErr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
