package oauth

import "time"

// GrantEncoding selects how the refresh/exchange request body is encoded,
// since different vendors' token endpoints expect different content types
// for the same authorization-code/refresh-token grants.
type GrantEncoding int

const (
	// EncodingJSON sends the grant parameters as a JSON body.
	EncodingJSON GrantEncoding = iota
	// EncodingForm sends the grant parameters as application/x-www-form-urlencoded.
	EncodingForm
)

// ClientConfig is the fixed, backend-specific OAuth configuration: public
// client id, token/authorize endpoints, scope, and any vendor-specific
// extra authorize-URL parameters.
type ClientConfig struct {
	ClientID         string
	ClientSecret     string // empty for public installed-app clients
	AuthorizeURL     string
	TokenURL         string
	Scope            string
	ExtraAuthzParams map[string]string
	Encoding         GrantEncoding
	CallbackPort     int
}

// CallbackTimeout is the absolute wall-clock budget from authorize-URL
// emission to code receipt.
const CallbackTimeout = 5 * time.Minute
