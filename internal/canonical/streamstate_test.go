package canonical

import (
	"encoding/json"
	"testing"
)

// TestBlockFramingAndStopReason exercises block-framing correctness, the
// stop-reason law, and tool-argument reconstruction against the shared
// state machine directly, independent of any backend wire format.
func TestBlockFramingAndStopReason(t *testing.T) {
	var events []Event
	s := NewStreamState("test-model", "msg_1", func(e Event) { events = append(events, e) })

	s.EmitTextDelta("hello ")
	s.EmitTextDelta("world")
	s.OpenToolBlock("item-1", "call-1", "Bash")
	s.EmitToolArgsDelta("item-1", `{"cmd":`)
	s.EmitToolArgsDelta("item-1", `"ls"}`)
	s.CloseToolBlock("item-1")
	s.SetUsage(Usage{InputTokens: 3, OutputTokens: 5})
	s.Finalize()

	starts := map[int]bool{}
	stops := map[int]bool{}
	maxIndex := -1
	var partial string
	var sawMessageDelta bool
	var stopReason string

	for i, ev := range events {
		switch p := ev.Payload.(type) {
		case ContentBlockStart:
			if starts[p.Index] {
				t.Fatalf("duplicate content_block_start at index %d", p.Index)
			}
			starts[p.Index] = true
			if p.Index > maxIndex {
				maxIndex = p.Index
			}
		case ContentBlockStop:
			if !starts[p.Index] {
				t.Fatalf("content_block_stop at %d with no matching start", p.Index)
			}
			if stops[p.Index] {
				t.Fatalf("duplicate content_block_stop at index %d", p.Index)
			}
			stops[p.Index] = true
		case ContentBlockDelta:
			if p.Delta.Type == "input_json_delta" {
				partial += p.Delta.PartialJSON
			}
		case MessageDelta:
			if sawMessageDelta {
				t.Fatalf("message_delta emitted twice")
			}
			sawMessageDelta = true
			stopReason = p.Delta.StopReason
			for idx := range starts {
				if !stops[idx] {
					t.Fatalf("block %d never closed before message_delta (event %d)", idx, i)
				}
			}
		}
	}

	if len(starts) != maxIndex+1 {
		t.Fatalf("block indices not dense: %d starts but max index %d", len(starts), maxIndex)
	}
	for i := 0; i <= maxIndex; i++ {
		if !starts[i] {
			t.Fatalf("missing content_block_start at index %d", i)
		}
	}
	if !sawMessageDelta {
		t.Fatalf("message_delta never emitted")
	}
	if stopReason != StopToolUse {
		t.Fatalf("expected stop_reason=tool_use, got %q", stopReason)
	}
	if !json.Valid([]byte(partial)) {
		t.Fatalf("tool args did not reconstruct to valid JSON: %q", partial)
	}
	if events[len(events)-1].Type != "message_stop" {
		t.Fatalf("last event should be message_stop, got %s", events[len(events)-1].Type)
	}
}

func TestStopReasonEndTurnWhenNoToolUse(t *testing.T) {
	var events []Event
	s := NewStreamState("m", "id", func(e Event) { events = append(events, e) })
	s.EmitTextDelta("hi")
	s.Finalize()
	for _, ev := range events {
		if md, ok := ev.Payload.(MessageDelta); ok {
			if md.Delta.StopReason != StopEndTurn {
				t.Fatalf("expected end_turn, got %s", md.Delta.StopReason)
			}
		}
	}
}

func TestFinalizeOnEmptyStreamSynthesizesMinimalMessage(t *testing.T) {
	var events []Event
	s := NewStreamState("m", "id", func(e Event) { events = append(events, e) })
	s.Finalize()

	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []string{"message_start", "content_block_start", "content_block_stop", "message_delta", "message_stop"}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got %v, want %v", types, want)
		}
	}
}

func TestStripCacheControl(t *testing.T) {
	msgs := []Message{{
		Role: "user",
		Content: []Block{
			{Type: BlockText, Text: "hi", CacheControl: json.RawMessage(`{"type":"ephemeral"}`)},
			{Type: BlockToolResult, ToolUseID: "t1", Content: []Block{
				{Type: BlockText, Text: "result", CacheControl: json.RawMessage(`{"type":"ephemeral"}`)},
			}},
		},
	}}
	StripCacheControl(msgs)
	for _, b := range msgs[0].Content {
		if b.CacheControl != nil {
			t.Fatalf("cache_control not stripped: %+v", b)
		}
		for _, sub := range b.Content {
			if sub.CacheControl != nil {
				t.Fatalf("nested cache_control not stripped: %+v", sub)
			}
		}
	}
}
