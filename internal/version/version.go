// Package version reports build information for relaymux, the local
// reverse-proxy fronting the four AI backends behind a single
// Anthropic-Messages-compatible endpoint.
package version

// Build information. Version, Commit, and BuiltAt are set at build time
// via -ldflags.
var (
	// Version is relaymux's own release version, independent of any
	// backend's wire-protocol version.
	Version = "v0.1.0-dev"

	// Commit is the git commit hash relaymux was built from.
	Commit = "unknown"

	// BuiltAt is the build timestamp.
	BuiltAt = "unknown"
)

// WireProtocol names the request/response contract relaymux's /v1/messages
// endpoint speaks. It changes independently of Version: a relaymux release
// can ship fixes without touching the wire contract clients depend on.
const WireProtocol = "anthropic-messages"

// Info returns the short version string, as printed by -version.
func Info() string {
	return Version
}

// FullInfo returns build and wire-protocol information in one line, used by
// -version and reported on /health so an operator can confirm which build
// is live without having to also know which wire contract it speaks.
func FullInfo() string {
	return "relaymux " + Version + " protocol=" + WireProtocol + " commit=" + Commit + " built_at=" + BuiltAt
}
