package cursor

import "time"

// Credential is the binary-framed backend's account credential: a static
// API token paired with the machine identity it presents on every call,
// plus a ghost-mode flag requesting the backend not persist any trace of
// the call. Unlike the OAuth backends' credential, this one never expires
// and is never refreshed.
type Credential struct {
	APIToken  string `json:"apiToken"`
	MachineID string `json:"machineId"`
	GhostMode bool   `json:"ghostMode,omitempty"`
}

// ExpiringSoon always reports false: an API token has no access-token
// horizon to refresh against.
func (c *Credential) ExpiringSoon(now time.Time) bool {
	return false
}
