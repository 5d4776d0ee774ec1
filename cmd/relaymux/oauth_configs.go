package main

import (
	"github.com/tokligence/relaymux/internal/config"
	"github.com/tokligence/relaymux/internal/oauth"
)

// oauthConfigFor returns the fixed public-client OAuth endpoints for name,
// filled in with the operator-configured client id and scope. The
// authorize/token URLs and encoding are vendor-fixed, unlike the model list
// or pool file path, so only ClientID/Scope come from GatewayConfig. Only
// called for the three OAuth-backed backends; the binary-framed Cursor
// backend carries a static API-token credential and never runs an
// authorize-code flow at all.
func oauthConfigFor(name config.BackendName, bc config.BackendConfig, callbackPort int) oauth.ClientConfig {
	base := oauth.ClientConfig{
		ClientID:     bc.OAuthClientID,
		Scope:        bc.OAuthScope,
		CallbackPort: callbackPort,
	}
	switch name {
	case config.BackendResponses:
		base.AuthorizeURL = "https://auth.openai.com/oauth/authorize"
		base.TokenURL = "https://auth.openai.com/oauth/token"
		base.Encoding = oauth.EncodingJSON
	case config.BackendChatCompletions:
		base.AuthorizeURL = "https://github.com/login/oauth/authorize"
		base.TokenURL = "https://github.com/login/oauth/access_token"
		base.Encoding = oauth.EncodingForm
	case config.BackendCloudCode:
		base.AuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
		base.TokenURL = "https://oauth2.googleapis.com/token"
		base.Encoding = oauth.EncodingForm
		base.ExtraAuthzParams = map[string]string{"access_type": "offline", "prompt": "consent"}
	}
	return base
}
