package cloudcode

import (
	"context"
	"io"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/oauth"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Runner adapts Adapter+Client to the dispatch orchestrator's
// backend-agnostic interface.
type Runner struct {
	Adapter *Adapter
	Client  *Client
}

// NewRunner constructs a Runner over an Adapter scoped to project and the
// given Client.
func NewRunner(project string, client *Client) *Runner {
	return &Runner{Adapter: NewAdapter(project), Client: client}
}

func (r *Runner) BuildRequest(model string, req canonical.Request) (any, error) {
	return r.Adapter.BuildRequest(model, req)
}

func (r *Runner) Call(ctx context.Context, cred accountpool.Credential, wireReq any) (io.ReadCloser, error) {
	built, ok := wireReq.(Request)
	if !ok {
		return nil, relayerr.New(relayerr.ContractViolation, 0, "cloudcode runner: unexpected wire request type")
	}
	token, ok := cred.(*oauth.Token)
	if !ok {
		return nil, relayerr.New(relayerr.ConfigMissing, 500, "cloudcode runner: unexpected credential type")
	}
	return r.Client.Call(ctx, token.AccessToken, built)
}

func (r *Runner) StreamToCanonical(ctx context.Context, body io.Reader, state *canonical.StreamState) error {
	return StreamToCanonical(ctx, body, state)
}
