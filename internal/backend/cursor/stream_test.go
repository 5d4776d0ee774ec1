package cursor

import (
	"bytes"
	"context"
	"testing"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

func framedStream(t *testing.T, events ...string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, e := range events {
		f, err := EncodeFrame([]byte(e), false)
		if err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
		buf.Write(f)
	}
	return &buf
}

func collectEvents(t *testing.T, r *bytes.Buffer) []canonical.Event {
	t.Helper()
	var events []canonical.Event
	state := canonical.NewStreamState("cursor/fast", "msg_1", func(e canonical.Event) {
		events = append(events, e)
	})
	if err := StreamToCanonical(context.Background(), r, state); err != nil {
		t.Fatalf("StreamToCanonical: %v", err)
	}
	return events
}

func TestStreamTextDeltas(t *testing.T) {
	r := framedStream(t,
		`{"text":"hel"}`,
		`{"text":"lo","usage":{"inputTokens":3,"outputTokens":2}}`,
	)
	events := collectEvents(t, r)
	wantTypes := []string{
		"message_start", "content_block_start", "content_block_delta",
		"content_block_delta", "content_block_stop", "message_delta", "message_stop",
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(wantTypes), events)
	}
	msgDelta := events[len(events)-2].Payload.(canonical.MessageDelta)
	if msgDelta.Delta.StopReason != canonical.StopEndTurn {
		t.Fatalf("expected end_turn, got %s", msgDelta.Delta.StopReason)
	}
	if msgDelta.Usage.InputTokens != 3 || msgDelta.Usage.OutputTokens != 2 {
		t.Fatalf("unexpected usage: %+v", msgDelta.Usage)
	}
}

func TestStreamToolCallAccumulates(t *testing.T) {
	r := framedStream(t,
		`{"toolCall":{"id":"c1","name":"Bash","argumentsPart":"{\"cmd\":"}}`,
		`{"toolCall":{"id":"c1","argumentsPart":"\"ls\"}"}}`,
		`{"toolCall":{"id":"c1","done":true}}`,
	)
	events := collectEvents(t, r)
	start := events[1].Payload.(canonical.ContentBlockStart)
	if start.ContentBlock.Type != canonical.BlockToolUse || start.ContentBlock.ID != "c1" || start.ContentBlock.Name != "Bash" {
		t.Fatalf("unexpected tool-use start: %+v", start)
	}
	var args string
	for _, e := range events {
		if d, ok := e.Payload.(canonical.ContentBlockDelta); ok {
			args += d.Delta.PartialJSON
		}
	}
	if args != `{"cmd":"ls"}` {
		t.Fatalf("unexpected reassembled args: %q", args)
	}
	last := events[len(events)-2].Payload.(canonical.MessageDelta)
	if last.Delta.StopReason != canonical.StopToolUse {
		t.Fatalf("expected tool_use stop reason, got %s", last.Delta.StopReason)
	}
}

func TestStreamEmbeddedAuthErrorAborts(t *testing.T) {
	r := framedStream(t, `{"text":"partial"}`, `{"error":{"kind":"auth","message":"token expired"}}`)
	var events []canonical.Event
	state := canonical.NewStreamState("cursor/fast", "msg_1", func(e canonical.Event) {
		events = append(events, e)
	})
	err := StreamToCanonical(context.Background(), r, state)
	relErr, ok := relayerr.As(err)
	if !ok || relErr.Kind != relayerr.Unauthorized {
		t.Fatalf("expected Unauthorized relayerr, got %v", err)
	}
}

func TestStreamEmbeddedRateLimitErrorCarriesRetryAfter(t *testing.T) {
	r := framedStream(t, `{"error":{"kind":"rate","message":"slow down","resetsInSeconds":15}}`)
	state := canonical.NewStreamState("cursor/fast", "msg_1", func(canonical.Event) {})
	err := StreamToCanonical(context.Background(), r, state)
	relErr, ok := relayerr.As(err)
	if !ok || relErr.Kind != relayerr.RateLimited || relErr.RetryAfter != secondsToDuration(15) {
		t.Fatalf("expected RateLimited with 15s retry-after, got %v", err)
	}
}
