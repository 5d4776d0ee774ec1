package chatcompletions

import (
	"encoding/json"
	"testing"

	"github.com/tokligence/relaymux/internal/canonical"
)

func TestBuildRequestSystemAndUserText(t *testing.T) {
	a := NewAdapter()
	req := canonical.Request{
		System: &canonical.SystemField{Text: "be terse"},
		Messages: []canonical.Message{
			{Role: "user", Content: []canonical.Block{{Type: canonical.BlockText, Text: "hi"}}},
		},
	}
	out, err := a.BuildRequest("gpt-4o", req)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if len(out.Messages) != 2 || out.Messages[0].Role != "system" || out.Messages[0].Content != "be terse" {
		t.Fatalf("expected system message prepended, got %+v", out.Messages)
	}
	if out.Messages[1].Role != "user" || out.Messages[1].Content != "hi" {
		t.Fatalf("unexpected user message: %+v", out.Messages[1])
	}
	if !out.Stream {
		t.Fatalf("expected stream forced true")
	}
}

func TestBuildRequestAssistantTextAndToolUseCombine(t *testing.T) {
	a := NewAdapter()
	req := canonical.Request{
		Messages: []canonical.Message{
			{Role: "user", Content: []canonical.Block{{Type: canonical.BlockText, Text: "list files"}}},
			{Role: "assistant", Content: []canonical.Block{
				{Type: canonical.BlockText, Text: "sure, one sec"},
				{Type: canonical.BlockToolUse, ID: "c1", Name: "Bash", Input: json.RawMessage(`{"cmd":"ls"}`)},
			}},
			{Role: "user", Content: []canonical.Block{
				{Type: canonical.BlockToolResult, ToolUseID: "c1", Content: []canonical.Block{{Type: canonical.BlockText, Text: "a.txt"}}},
			}},
		},
	}
	out, err := a.BuildRequest("gpt-4o", req)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(out.Messages), out.Messages)
	}
	assistant := out.Messages[1]
	if assistant.Role != "assistant" || assistant.Content != "sure, one sec" || len(assistant.ToolCalls) != 1 {
		t.Fatalf("unexpected assistant message: %+v", assistant)
	}
	if assistant.ToolCalls[0].ID != "c1" || assistant.ToolCalls[0].Function.Name != "Bash" {
		t.Fatalf("unexpected tool call: %+v", assistant.ToolCalls[0])
	}
	toolMsg := out.Messages[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "c1" || toolMsg.Content != "a.txt" {
		t.Fatalf("unexpected tool result message: %+v", toolMsg)
	}
}

func TestBuildRequestToolChoiceTranslation(t *testing.T) {
	a := NewAdapter()
	base := canonical.Request{
		Messages: []canonical.Message{
			{Role: "user", Content: []canonical.Block{{Type: canonical.BlockText, Text: "go"}}},
		},
	}
	req := base
	req.ToolChoice = json.RawMessage(`{"type":"tool","name":"Bash"}`)
	out, err := a.BuildRequest("gpt-4o", req)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	choice, ok := out.ToolChoice.(map[string]any)
	if !ok || choice["type"] != "function" {
		t.Fatalf("unexpected tool_choice: %+v", out.ToolChoice)
	}
	fn, ok := choice["function"].(map[string]any)
	if !ok || fn["name"] != "Bash" {
		t.Fatalf("unexpected function choice: %+v", choice)
	}
}

func TestBuildRequestRejectsEmptyMessages(t *testing.T) {
	a := NewAdapter()
	if _, err := a.BuildRequest("gpt-4o", canonical.Request{}); err == nil {
		t.Fatalf("expected error for empty messages")
	}
}
