package cursor

import (
	"encoding/json"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Adapter converts canonical requests into the intermediate shape a
// backend-specific frame encoder consumes.
type Adapter struct {
	// ReasoningEffort is attached to every built request verbatim; the
	// canonical protocol carries no equivalent field, so this is a
	// pool/account-level configuration knob rather than derived per request.
	ReasoningEffort string
}

// NewAdapter constructs a request adapter with a fixed reasoning-effort setting.
func NewAdapter(reasoningEffort string) *Adapter {
	return &Adapter{ReasoningEffort: reasoningEffort}
}

// BuildRequest converts a canonical.Request into an IntermediateRequest.
func (a *Adapter) BuildRequest(model string, req canonical.Request) (IntermediateRequest, error) {
	if len(req.Messages) == 0 {
		return IntermediateRequest{}, relayerr.New(relayerr.ContractViolation, 400, "request has no messages")
	}

	messages := cloneMessages(req.Messages)
	canonical.StripCacheControl(messages)

	var wire []IntermediateMessage
	if system := req.System.Flatten(); system != "" {
		wire = append(wire, IntermediateMessage{Role: "system", Content: system})
	}
	converted, err := convertMessages(messages)
	if err != nil {
		return IntermediateRequest{}, err
	}
	wire = append(wire, converted...)

	return IntermediateRequest{
		Model:           model,
		Messages:        wire,
		Tools:           convertTools(req.Tools),
		ReasoningEffort: a.ReasoningEffort,
	}, nil
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

func convertMessages(msgs []canonical.Message) ([]IntermediateMessage, error) {
	var out []IntermediateMessage
	for _, m := range msgs {
		if m.Role == "user" {
			var text string
			var toolResults []IntermediateMessage
			for _, b := range m.Content {
				switch b.Type {
				case canonical.BlockText:
					if text != "" {
						text += "\n\n"
					}
					text += b.Text
				case canonical.BlockToolResult:
					toolResults = append(toolResults, IntermediateMessage{
						Role:       "tool",
						ToolCallID: b.ToolUseID,
						Content:    canonical.FlattenToolResultContent(b.Content),
					})
				}
			}
			if text != "" {
				out = append(out, IntermediateMessage{Role: "user", Content: text})
			}
			out = append(out, toolResults...)
			continue
		}

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
				calls = append(calls, ToolCall{ID: b.ID, Name: b.Name, Arguments: rawOrEmptyObject(b.Input)})
			case canonical.BlockThinking:
				// dropped: no wire equivalent for a prior reasoning trace.
			}
		}
		if text == "" && len(calls) == 0 {
			continue
		}
		out = append(out, IntermediateMessage{Role: "assistant", Content: text, ToolCalls: calls})
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
		tools = append(tools, Tool{Name: d.Name, Description: d.Description, Parameters: params})
	}
	return tools
}
