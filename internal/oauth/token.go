package oauth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// Token is the OAuth credential set persisted for one account. It
// implements accountpool.Credential via ExpiringSoon.
type Token struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	IDToken      string    `json:"idToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Email        string    `json:"email,omitempty"`
	Subject      string    `json:"sub,omitempty"`
}

// refreshSkew is the horizon used by both accountpool.GetTokenForAccount's
// caller and ExpiringSoon: refresh proactively 5 minutes before expiry.
const refreshSkew = 5 * time.Minute

// ExpiringSoon reports whether the access token should be refreshed before
// use.
func (t *Token) ExpiringSoon(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return t.ExpiresAt.Sub(now) < refreshSkew
}

// idClaims are the subset of ID-token claims the pool cares about for
// deriving an account's display identity.
type idClaims struct {
	Email string `json:"email"`
	Sub   string `json:"sub"`
	Exp   int64  `json:"exp"`
}

// ParseIDTokenClaims decodes the unsigned payload segment of a JWT ID
// token. Signature verification is intentionally skipped: the token
// arrived over the TLS-protected token endpoint response, the same trust
// boundary as the access token it accompanies.
func ParseIDTokenClaims(idToken string) (email, sub string, exp time.Time, ok bool) {
	parts := strings.Split(idToken, ".")
	if len(parts) < 2 {
		return "", "", time.Time{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", "", time.Time{}, false
	}
	var claims idClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", "", time.Time{}, false
	}
	var expTime time.Time
	if claims.Exp > 0 {
		expTime = time.Unix(claims.Exp, 0)
	}
	return claims.Email, claims.Sub, expTime, true
}
