package chatcompletions

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

// StreamToCanonical pulls chat-completion-style SSE lines off r and drives
// state, correlating incremental tool_calls[] fragments by their Index
// since this dialect does not repeat the call ID on every fragment.
func StreamToCanonical(ctx context.Context, r io.Reader, state *canonical.StreamState) error {
	reader := bufio.NewReader(r)
	itemIDByIndex := map[int]string{}

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
		applyChunk(state, chunk, itemIDByIndex)
	}
	state.Finalize()
	return nil
}

func applyChunk(state *canonical.StreamState, chunk StreamChunk, itemIDByIndex map[int]string) {
	if chunk.Usage != nil {
		state.SetUsage(canonical.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		})
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			state.EmitTextDelta(choice.Delta.Content)
		}
		for _, tc := range choice.Delta.ToolCalls {
			itemID, seen := itemIDByIndex[tc.Index]
			if !seen {
				itemID = "call_" + strconv.Itoa(tc.Index)
				itemIDByIndex[tc.Index] = itemID
				callID := tc.ID
				if callID == "" {
					callID = itemID
				}
				state.OpenToolBlock(itemID, callID, tc.Function.Name)
			}
			state.EmitToolArgsDelta(itemID, tc.Function.Arguments)
		}
		if choice.FinishReason == "tool_calls" {
			for _, itemID := range itemIDByIndex {
				state.CloseToolBlock(itemID)
			}
		}
	}
}
