package cloudcode

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/tokligence/relaymux/internal/canonical"
)

// StreamToCanonical pulls generateContent-style SSE lines off r and
// drives state. A function-call part has no stable id in this dialect, so
// each new one seen mid-stream is assigned a synthetic item id in call
// order.
func StreamToCanonical(ctx context.Context, r io.Reader, state *canonical.StreamState) error {
	reader := bufio.NewReader(r)
	nextCallIndex := 0

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
		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		nextCallIndex = applyChunk(state, chunk, nextCallIndex)
	}
	state.Finalize()
	return nil
}

func applyChunk(state *canonical.StreamState, chunk StreamChunk, nextCallIndex int) int {
	if chunk.UsageMetadata != nil {
		state.SetUsage(canonical.Usage{
			InputTokens:  chunk.UsageMetadata.PromptTokenCount,
			OutputTokens: chunk.UsageMetadata.CandidatesTokenCount,
		})
	}
	for _, cand := range chunk.Candidates {
		for _, part := range cand.Content.Parts {
			switch {
			case part.Text != "":
				state.EmitTextDelta(part.Text)
			case part.FunctionCall != nil:
				itemID := "call_" + strconv.Itoa(nextCallIndex)
				nextCallIndex++
				args, _ := json.Marshal(part.FunctionCall.Args)
				state.OpenToolBlock(itemID, itemID, part.FunctionCall.Name)
				state.EmitToolArgsDelta(itemID, string(args))
				state.CloseToolBlock(itemID)
			}
		}
	}
	return nextCallIndex
}
