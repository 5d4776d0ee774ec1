// Package oauth implements the authorization-code-with-PKCE flow and the
// refresh-token grant used by every OAuth-backed backend (Responses,
// Chat-Completions, Cloud-Code). Grounded on the refresh-grant HTTP call
// construction in other_examples/darvell-codex-pool (JSON body for one
// vendor's token endpoint, form-encoded for another's); the pack has no
// PKCE authorization-code example, so that half of the flow is written
// directly against RFC 7636 in the same net/http + crypto/rand style the
// pack already uses for token handling.
package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// PKCEPair is one authorization-code request's verifier/challenge pair.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// NewPKCEPair generates a 32-byte random code_verifier and its S256
// code_challenge, both base64url-encoded without padding.
func NewPKCEPair() (PKCEPair, error) {
	verifier, err := randomURLSafe(32)
	if err != nil {
		return PKCEPair{}, err
	}
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	return PKCEPair{Verifier: verifier, Challenge: challenge}, nil
}

// NewState generates a 16-byte random CSRF state token.
func NewState() (string, error) {
	return randomURLSafe(16)
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
