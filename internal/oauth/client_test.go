package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestExchangeJSONEncoding(t *testing.T) {
	var gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	cfg := ClientConfig{ClientID: "cid", TokenURL: srv.URL, Encoding: EncodingJSON, CallbackPort: 4141}
	c := NewClient(cfg, srv.Client())
	tok, err := c.Exchange(context.Background(), "code123", PKCEPair{Verifier: "v"})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if !strings.Contains(gotContentType, "application/json") {
		t.Fatalf("expected JSON content type, got %q", gotContentType)
	}
	if gotBody["code"] != "code123" || gotBody["code_verifier"] != "v" {
		t.Fatalf("missing PKCE fields in request body: %+v", gotBody)
	}
}

func TestRefreshFormEncoding(t *testing.T) {
	var gotContentType string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at2",
			"expires_in":   1800,
		})
	}))
	defer srv.Close()

	cfg := ClientConfig{ClientID: "cid", TokenURL: srv.URL, Encoding: EncodingForm}
	c := NewClient(cfg, srv.Client())
	tok, err := c.Refresh(context.Background(), "existing-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tok.AccessToken != "at2" {
		t.Fatalf("unexpected access token: %+v", tok)
	}
	// omitted refresh_token in response should fall back to the existing one.
	if tok.RefreshToken != "existing-refresh" {
		t.Fatalf("expected fallback refresh token, got %q", tok.RefreshToken)
	}
	if !strings.Contains(gotContentType, "application/x-www-form-urlencoded") {
		t.Fatalf("expected form content type, got %q", gotContentType)
	}
	if gotForm.Get("grant_type") != "refresh_token" {
		t.Fatalf("missing grant_type in form: %v", gotForm)
	}
}

func TestRefreshNon2xxIsNonFatalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	cfg := ClientConfig{ClientID: "cid", TokenURL: srv.URL, Encoding: EncodingJSON}
	c := NewClient(cfg, srv.Client())
	_, err := c.Refresh(context.Background(), "bad-token")
	if err == nil {
		t.Fatalf("expected error on 401 refresh response")
	}
}

func TestAuthorizeURLIncludesRequiredParams(t *testing.T) {
	cfg := ClientConfig{
		ClientID:     "cid",
		AuthorizeURL: "https://example.com/authorize",
		Scope:        "openid profile",
		CallbackPort: 8123,
	}
	pkce := PKCEPair{Verifier: "v", Challenge: "c"}
	u, err := AuthorizeURL(cfg, pkce, "state123")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("response_type") != "code" {
		t.Fatalf("missing response_type=code")
	}
	if q.Get("code_challenge") != "c" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("missing PKCE challenge params: %v", q)
	}
	if q.Get("state") != "state123" {
		t.Fatalf("missing state")
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:8123/auth/callback" {
		t.Fatalf("unexpected redirect_uri: %s", q.Get("redirect_uri"))
	}
}

func TestNewPKCEPairChallengeIsDerivedFromVerifier(t *testing.T) {
	p1, err := NewPKCEPair()
	if err != nil {
		t.Fatalf("NewPKCEPair: %v", err)
	}
	p2, err := NewPKCEPair()
	if err != nil {
		t.Fatalf("NewPKCEPair: %v", err)
	}
	if p1.Verifier == p2.Verifier {
		t.Fatalf("expected distinct verifiers across calls")
	}
	if p1.Challenge == "" || len(p1.Challenge) < 20 {
		t.Fatalf("challenge looks malformed: %q", p1.Challenge)
	}
}
