package chatcompletions

import (
	"encoding/json"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Adapter converts canonical requests into wire Requests and back.
type Adapter struct{}

// NewAdapter constructs a request adapter.
func NewAdapter() *Adapter { return &Adapter{} }

// BuildRequest converts a canonical.Request into the wire Request this
// backend accepts. Unlike the Responses-style backend, this dialect
// accepts a plain system-role message, so the system prompt is prepended
// as-is rather than folded into an out-of-band instructions field.
func (a *Adapter) BuildRequest(model string, req canonical.Request) (Request, error) {
	if len(req.Messages) == 0 {
		return Request{}, relayerr.New(relayerr.ContractViolation, 400, "request has no messages")
	}

	messages := cloneMessages(req.Messages)
	canonical.StripCacheControl(messages)

	var wire []Message
	if system := req.System.Flatten(); system != "" {
		wire = append(wire, Message{Role: "system", Content: system})
	}

	converted, err := convertMessages(messages)
	if err != nil {
		return Request{}, err
	}
	wire = append(wire, converted...)

	tools := convertTools(req.Tools)

	out := Request{
		Model:       model,
		Messages:    wire,
		Tools:       tools,
		Stream:      true,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	choice, err := convertToolChoice(req.ToolChoice)
	if err != nil {
		return Request{}, err
	}
	out.ToolChoice = choice
	return out, nil
}

func cloneMessages(msgs []canonical.Message) []canonical.Message {
	out := make([]canonical.Message, len(msgs))
	for i, m := range msgs {
		blocks := make([]canonical.Block, len(m.Content))
		copy(blocks, m.Content)
		out[i] = canonical.Message{Role: m.Role, Content: blocks}
	}
	return out
}

// convertMessages maps each canonical turn onto one or more wire messages.
// A single assistant turn mixing text and tool_use blocks becomes one
// assistant message carrying both Content and ToolCalls, matching how
// this dialect represents a turn that both talks and calls a function.
// A user turn's tool_result blocks each become their own role:"tool"
// message, since the wire format has no way to attach multiple tool
// results to a single message.
func convertMessages(msgs []canonical.Message) ([]Message, error) {
	var out []Message
	for _, m := range msgs {
		if m.Role == "user" {
			var text string
			var toolResults []Message
			for _, b := range m.Content {
				switch b.Type {
				case canonical.BlockText:
					if text != "" {
						text += "\n\n"
					}
					text += b.Text
				case canonical.BlockToolResult:
					toolResults = append(toolResults, Message{
						Role:       "tool",
						ToolCallID: b.ToolUseID,
						Content:    canonical.FlattenToolResultContent(b.Content),
					})
				}
			}
			if text != "" {
				out = append(out, Message{Role: "user", Content: text})
			}
			out = append(out, toolResults...)
			continue
		}

		// assistant turn: one message, text content plus any tool calls.
		var text string
		var calls []ToolCall
		for _, b := range m.Content {
			switch b.Type {
			case canonical.BlockText:
				if text != "" {
					text += "\n\n"
				}
				text += b.Text
			case canonical.BlockToolUse:
				calls = append(calls, ToolCall{
					ID:   b.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      b.Name,
						Arguments: rawOrEmptyObject(b.Input),
					},
				})
			case canonical.BlockThinking:
				// dropped: no wire equivalent for a prior reasoning trace.
			}
		}
		if text == "" && len(calls) == 0 {
			continue
		}
		out = append(out, Message{Role: "assistant", Content: text, ToolCalls: calls})
	}
	return out, nil
}

func rawOrEmptyObject(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func convertTools(decls []canonical.ToolDecl) []Tool {
	var tools []Tool
	for _, d := range decls {
		var params map[string]any
		if len(d.InputSchema) > 0 {
			_ = json.Unmarshal(d.InputSchema, &params)
		}
		tools = append(tools, Tool{
			Type: "function",
			Function: ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// convertToolChoice mirrors the same "auto"/"none" passthrough and
// "any"->"required" rewrite used by the Responses-style backend, since
// both dialects share the same three-state vocabulary; only the
// named-tool shape's field names differ (function.name here instead of a
// bare name).
func convertToolChoice(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "auto", "none":
			return asString, nil
		case "any":
			return "required", nil
		}
		return asString, nil
	}
	var named struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 400, "invalid tool_choice", err)
	}
	switch named.Type {
	case "any":
		return "required", nil
	case "tool":
		return map[string]any{"type": "function", "function": map[string]any{"name": named.Name}}, nil
	default:
		return named.Type, nil
	}
}
