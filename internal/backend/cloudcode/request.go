package cloudcode

import (
	"encoding/json"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
)

// Adapter converts canonical requests into wire Requests and back.
type Adapter struct {
	// Project is the Cloud-Code project identifier attached to every
	// request envelope; empty is valid for accounts that don't need one.
	Project string
}

// NewAdapter constructs a request adapter bound to a Cloud-Code project id.
func NewAdapter(project string) *Adapter {
	return &Adapter{Project: project}
}

// BuildRequest converts a canonical.Request into the wire envelope this
// backend accepts.
func (a *Adapter) BuildRequest(model string, req canonical.Request) (Request, error) {
	if len(req.Messages) == 0 {
		return Request{}, relayerr.New(relayerr.ContractViolation, 400, "request has no messages")
	}

	messages := cloneMessages(req.Messages)
	canonical.StripCacheControl(messages)

	contents, err := convertMessages(messages)
	if err != nil {
		return Request{}, err
	}

	inner := InnerRequest{
		Contents: contents,
		Tools:    convertTools(req.Tools),
	}
	if system := req.System.Flatten(); system != "" {
		inner.SystemInstruction = &Content{Role: "user", Parts: []Part{{Text: system}}}
	}
	if choice := convertToolConfig(req.ToolChoice); choice != nil {
		inner.ToolConfig = choice
	}

	return Request{Project: a.Project, Model: model, Request: inner}, nil
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

// wireRole maps a canonical role onto the wire's two-role vocabulary:
// everything the model said is "model", everything else is "user"
// (including tool results, which this dialect represents as a
// functionResponse part inside a user-role turn).
func wireRole(canonicalRole string) string {
	if canonicalRole == "assistant" {
		return "model"
	}
	return "user"
}

func convertMessages(msgs []canonical.Message) ([]Content, error) {
	// functionResponse.name must match the originating functionCall.name,
	// but canonical tool_result only carries the tool_use_id; track the
	// id->name mapping as tool_use blocks are seen.
	nameByID := map[string]string{}
	var out []Content
	for _, m := range msgs {
		var parts []Part
		for _, b := range m.Content {
			switch b.Type {
			case canonical.BlockText:
				parts = append(parts, Part{Text: b.Text})
			case canonical.BlockToolUse:
				nameByID[b.ID] = b.Name
				args, err := decodeArgs(b.Input)
				if err != nil {
					return nil, err
				}
				parts = append(parts, Part{FunctionCall: &FunctionCall{Name: b.Name, Args: args}})
			case canonical.BlockToolResult:
				name := nameByID[b.ToolUseID]
				if name == "" {
					name = b.ToolUseID
				}
				parts = append(parts, Part{FunctionResponse: &FunctionResponse{
					Name:     name,
					Response: map[string]any{"content": canonical.FlattenToolResultContent(b.Content)},
				}})
			case canonical.BlockThinking:
				// dropped: no wire equivalent for a prior reasoning trace.
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Content{Role: wireRole(m.Role), Parts: parts})
	}
	return out, nil
}

func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 400, "invalid tool_use input", err)
	}
	return args, nil
}

func convertTools(decls []canonical.ToolDecl) []Tool {
	if len(decls) == 0 {
		return nil
	}
	var fns []FunctionDeclaration
	for _, d := range decls {
		var params map[string]any
		if len(d.InputSchema) > 0 {
			_ = json.Unmarshal(d.InputSchema, &params)
		}
		fns = append(fns, FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return []Tool{{FunctionDeclarations: fns}}
}

// convertToolConfig maps the canonical tool_choice vocabulary onto the
// wire's functionCallingConfig: "auto"/"none" pass through as mode,
// "any" becomes mode "ANY", and a named-tool choice becomes mode "ANY"
// restricted to that one function name.
func convertToolConfig(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	mode := ""
	var allowed []string

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch asString {
		case "auto":
			mode = "AUTO"
		case "none":
			mode = "NONE"
		case "any":
			mode = "ANY"
		default:
			return nil
		}
	} else {
		var named struct {
			Type string `json:"type"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &named); err != nil {
			return nil
		}
		switch named.Type {
		case "any":
			mode = "ANY"
		case "tool":
			mode = "ANY"
			allowed = []string{named.Name}
		default:
			return nil
		}
	}

	cfg := map[string]any{"mode": mode}
	if len(allowed) > 0 {
		cfg["allowedFunctionNames"] = allowed
	}
	return map[string]any{"functionCallingConfig": cfg}
}
