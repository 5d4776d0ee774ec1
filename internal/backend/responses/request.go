package responses

import (
	"encoding/json"

	"github.com/tokligence/relaymux/internal/canonical"
	"github.com/tokligence/relaymux/internal/relayerr"
	"github.com/tokligence/relaymux/internal/schema"
)

// agentTools are stripped from the outgoing tool list entirely: this
// backend has no sandboxed execution surface for them, and forwarding
// their declarations only invites the model to call something that will
// never be answered.
var agentTools = map[string]bool{
	"Task":           true,
	"dispatch_agent": true,
	"computer":       true,
	"browser":        true,
}

const webSearchToolName = "WebSearch"

const autonomousAgentPreamble = "You are an autonomous coding agent operating without a human in the loop. " +
	"Complete the requested task directly using the tools available to you.\n\n"

// Adapter converts canonical requests into wire Requests and back, caching
// sanitized tool schemas across calls.
type Adapter struct {
	schemaCache *schema.Cache
}

// NewAdapter constructs a request adapter with its own schema cache.
func NewAdapter() (*Adapter, error) {
	c, err := schema.NewCache()
	if err != nil {
		return nil, err
	}
	return &Adapter{schemaCache: c}, nil
}

// BuildRequest converts a canonical.Request into the wire Request this
// backend accepts, always forcing Stream true since the dispatch
// orchestrator drives every backend call through the streaming adapter
// and aggregates locally for non-streaming clients.
func (a *Adapter) BuildRequest(model string, req canonical.Request) (Request, error) {
	if len(req.Messages) == 0 {
		return Request{}, relayerr.New(relayerr.ContractViolation, 400, "request has no messages")
	}

	messages := cloneMessages(req.Messages)
	canonical.StripCacheControl(messages)

	hasWebSearchTool := false
	for _, t := range req.Tools {
		if t.Name == webSearchToolName {
			hasWebSearchTool = true
			break
		}
	}
	if hasWebSearchTool {
		messages = stripWebSearchBlocks(messages)
	}

	items, err := a.convertMessages(messages)
	if err != nil {
		return Request{}, err
	}

	tools, err := a.convertTools(req.Tools, hasWebSearchTool)
	if err != nil {
		return Request{}, err
	}

	out := Request{
		Model:        model,
		Input:        items,
		Tools:        tools,
		Instructions: autonomousAgentPreamble + req.System.Flatten(),
		Stream:       true,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
	}
	if choice, err := convertToolChoice(req.ToolChoice); err != nil {
		return Request{}, err
	} else if choice != nil {
		out.ToolChoice = choice
	}
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

// stripWebSearchBlocks removes tool_use/tool_result pairs referencing the
// WebSearch tool, since the wire "web_search" tool type is a built-in the
// backend executes itself rather than a client-supplied function; the
// conversation history should not also carry the client-side echo of it.
func stripWebSearchBlocks(msgs []canonical.Message) []canonical.Message {
	webSearchCallIDs := map[string]bool{}
	for _, m := range msgs {
		for _, b := range m.Content {
			if b.Type == canonical.BlockToolUse && b.Name == webSearchToolName {
				webSearchCallIDs[b.ID] = true
			}
		}
	}
	if len(webSearchCallIDs) == 0 {
		return msgs
	}
	out := make([]canonical.Message, 0, len(msgs))
	for _, m := range msgs {
		kept := make([]canonical.Block, 0, len(m.Content))
		for _, b := range m.Content {
			switch {
			case b.Type == canonical.BlockToolUse && webSearchCallIDs[b.ID]:
				continue
			case b.Type == canonical.BlockToolResult && webSearchCallIDs[b.ToolUseID]:
				continue
			default:
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			out = append(out, canonical.Message{Role: m.Role, Content: kept})
		}
	}
	return out
}

func (a *Adapter) convertMessages(msgs []canonical.Message) ([]Item, error) {
	var items []Item
	for _, m := range msgs {
		for _, b := range m.Content {
			switch b.Type {
			case canonical.BlockText:
				role := m.Role
				textType := "input_text"
				if role == "assistant" {
					textType = "output_text"
				}
				items = append(items, Item{
					Type:    "message",
					Role:    role,
					Content: []ItemContent{{Type: textType, Text: b.Text}},
				})
			case canonical.BlockToolUse:
				items = append(items, Item{
					Type:      "function_call",
					CallID:    b.ID,
					Name:      b.Name,
					Arguments: rawOrEmptyObject(b.Input),
				})
			case canonical.BlockToolResult:
				items = append(items, Item{
					Type:   "function_call_output",
					CallID: b.ToolUseID,
					Output: canonical.FlattenToolResultContent(b.Content),
				})
			case canonical.BlockThinking:
				// dropped: this backend has no equivalent input item for
				// a prior turn's reasoning trace.
			}
		}
	}
	return items, nil
}

func rawOrEmptyObject(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func (a *Adapter) convertTools(decls []canonical.ToolDecl, hasWebSearchTool bool) ([]Tool, error) {
	var tools []Tool
	if hasWebSearchTool {
		tools = append(tools, Tool{Type: "web_search"})
	}
	for _, d := range decls {
		if d.Name == webSearchToolName || agentTools[d.Name] {
			continue
		}
		params, err := sanitizedParams(a.schemaCache, d.InputSchema)
		if err != nil {
			return nil, err
		}
		tools = append(tools, Tool{
			Type:        "function",
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return tools, nil
}

func sanitizedParams(cache *schema.Cache, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return schema.Sanitize(map[string]any{}), nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, relayerr.Wrap(relayerr.ContractViolation, 400, "invalid tool input_schema", err)
	}
	return cache.SanitizeCached(decoded), nil
}

// convertToolChoice translates the canonical tool_choice shape into the
// wire's function-choice shape. "auto" and "none" pass through unchanged,
// "any" becomes "required" since this backend has no direct equivalent of
// "call some tool, don't care which", and a named-tool choice becomes a
// function-type choice reference.
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
		return map[string]any{"type": "function", "name": named.Name}, nil
	default:
		return named.Type, nil
	}
}
