package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// StreamToCanonical reads length-prefixed frames off r, decodes each
// payload as a StreamEvent, and drives state. An embedded error frame
// aborts the loop and returns a classified *relayerr.Error without
// calling state.Finalize, since the stream did not complete normally.
func StreamToCanonical(ctx context.Context, r io.Reader, state *canonical.StreamState) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		payload, err := ReadFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		var ev StreamEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		if ev.Error != nil {
			return classifyStreamError(ev.Error)
		}
		applyEvent(state, ev)
	}
	state.Finalize()
	return nil
}

func applyEvent(state *canonical.StreamState, ev StreamEvent) {
	if ev.Usage != nil {
		state.SetUsage(canonical.Usage{InputTokens: ev.Usage.InputTokens, OutputTokens: ev.Usage.OutputTokens})
	}
	if ev.Text != "" {
		state.EmitTextDelta(ev.Text)
	}
	if tc := ev.ToolCall; tc != nil {
		if tc.Name != "" {
			state.OpenToolBlock(tc.ID, tc.ID, tc.Name)
		}
		if tc.ArgumentsPart != "" {
			state.EmitToolArgsDelta(tc.ID, tc.ArgumentsPart)
		}
		if tc.Done {
			state.CloseToolBlock(tc.ID)
		}
	}
}

func classifyStreamError(e *ErrorPayload) error {
	switch e.Kind {
	case "auth":
		return relayerr.New(relayerr.Unauthorized, 401, e.Message)
	case "rate":
		wait := defaultCooldown
		if e.ResetsInSeconds > 0 {
			wait = secondsToDuration(e.ResetsInSeconds)
		}
		return relayerr.New(relayerr.RateLimited, 429, e.Message).WithRetryAfter(wait)
	default:
		return relayerr.New(relayerr.Upstream, 0, e.Message)
	}
}
