package responses

import (
	"context"
	"io"

	"github.com/tokligence/relaymux/internal/accountpool"
	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/oauth"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Runner adapts Adapter+Client to the dispatch orchestrator's
// backend-agnostic interface, hiding this dialect's concrete Request type
// behind the `any` the orchestrator threads between BuildRequest and Call.
type Runner struct {
	Adapter *Adapter
	Client  *Client
}

// NewRunner constructs a Runner over a fresh Adapter and the given Client.
func NewRunner(client *Client) (*Runner, error) {
	adapter, err := NewAdapter()
	if err != nil {
		return nil, err
	}
	return &Runner{Adapter: adapter, Client: client}, nil
}

func (r *Runner) BuildRequest(model string, req canonical.Request) (any, error) {
	return r.Adapter.BuildRequest(model, req)
}

func (r *Runner) Call(ctx context.Context, cred accountpool.Credential, wireReq any) (io.ReadCloser, error) {
	built, ok := wireReq.(Request)
	if !ok {
		return nil, relayerr.New(relayerr.ContractViolation, 0, "responses runner: unexpected wire request type")
	}
	token, ok := cred.(*oauth.Token)
	if !ok {
		return nil, relayerr.New(relayerr.ConfigMissing, 500, "responses runner: unexpected credential type")
	}
	return r.Client.Call(ctx, token.AccessToken, built)
}

func (r *Runner) StreamToCanonical(ctx context.Context, body io.Reader, state *canonical.StreamState) error {
	return StreamToCanonical(ctx, body, state)
}
