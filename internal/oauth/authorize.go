package oauth

import (
	"fmt"
	"net/url"
)

// AuthorizeURL builds the authorization-code request URL: response_type,
// client_id, scope, redirect_uri, PKCE challenge, state, plus any
// backend-specific extras.
func AuthorizeURL(cfg ClientConfig, pkce PKCEPair, state string) (string, error) {
	base, err := url.Parse(cfg.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("oauth: invalid authorize URL: %w", err)
	}
	q := base.Query()
	q.Set("response_type", "code")
	q.Set("client_id", cfg.ClientID)
	q.Set("scope", cfg.Scope)
	q.Set("redirect_uri", RedirectURI(cfg.CallbackPort))
	q.Set("code_challenge", pkce.Challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	for k, v := range cfg.ExtraAuthzParams {
		q.Set(k, v)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// RedirectURI is the fixed local callback URI every backend's authorize
// request points back to.
func RedirectURI(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/auth/callback", port)
}
