package cursor

import (
	"context"
	"io"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Runner adapts Adapter+Client to the dispatch orchestrator's
// backend-agnostic interface. Outgoing request frames are never
// gzip-compressed; the wire format's compression flags exist for the
// response direction, where the backend chooses to compress large payloads.
type Runner struct {
	Adapter *Adapter
	Client  *Client
}

// NewRunner constructs a Runner over an Adapter fixed to reasoningEffort
// and the given Client.
func NewRunner(reasoningEffort string, client *Client) *Runner {
	return &Runner{Adapter: NewAdapter(reasoningEffort), Client: client}
}

func (r *Runner) BuildRequest(model string, req canonical.Request) (any, error) {
	return r.Adapter.BuildRequest(model, req)
}

func (r *Runner) Call(ctx context.Context, cred accountpool.Credential, wireReq any) (io.ReadCloser, error) {
	built, ok := wireReq.(IntermediateRequest)
	if !ok {
		return nil, relayerr.New(relayerr.ContractViolation, 0, "cursor runner: unexpected wire request type")
	}
	c, ok := cred.(*Credential)
	if !ok {
		return nil, relayerr.New(relayerr.ConfigMissing, 500, "cursor runner: unexpected credential type")
	}
	return r.Client.Call(ctx, c.APIToken, c.MachineID, c.GhostMode, built, false)
}

func (r *Runner) StreamToCanonical(ctx context.Context, body io.Reader, state *canonical.StreamState) error {
	return StreamToCanonical(ctx, body, state)
}
