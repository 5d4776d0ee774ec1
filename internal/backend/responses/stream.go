package responses

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/tokligence/relaymux/internal/canonical"
)

// StreamToCanonical pulls Responses-style SSE lines off r and drives state,
// translating output_text deltas, function_call lifecycle events, and the
// terminal usage report into canonical events. It returns once the stream
// is exhausted or the context is cancelled.
func StreamToCanonical(ctx context.Context, r io.Reader, state *canonical.StreamState) error {
	reader := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		var env StreamEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			continue
		}
		applyEvent(state, env)
	}
	state.Finalize()
	return nil
}

func applyEvent(state *canonical.StreamState, env StreamEnvelope) {
	switch env.Type {
	case EventOutputTextDelta:
		state.EmitTextDelta(env.Delta)
	case EventOutputItemAdded:
		if env.Item != nil && env.Item.Type == "function_call" {
			state.OpenToolBlock(env.Item.ID, env.Item.CallID, env.Item.Name)
		}
	case EventFunctionArgsDelta:
		state.EmitToolArgsDelta(env.ItemID, env.Delta)
	case EventFunctionArgsDone:
		// Finalization marker only; the block stays open until Finalize
		// closes every open block at stream end.
	case EventCompleted:
		if env.Response != nil && env.Response.Usage != nil {
			state.SetUsage(canonical.Usage{
				InputTokens:  env.Response.Usage.InputTokens,
				OutputTokens: env.Response.Usage.OutputTokens,
			})
		}
	case EventFailed:
		// Not acted on: the stream ends with whatever was emitted before
		// it, and Finalize completes the message (a minimal message_start
		// plus empty text block when nothing was emitted at all).
	}
}
