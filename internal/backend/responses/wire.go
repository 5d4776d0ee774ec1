// Package responses adapts the canonical Messages protocol to and from the
// OpenAI-Responses-style wire format used by the Codex backend
// (chatgpt.com/backend-api/codex/responses): an "input" item array instead
// of a message array, function_call/function_call_output items instead of
// tool_use/tool_result blocks, and an output_item/response.* SSE event
// stream instead of chat-completion deltas.
//
// The item/tool/stream-envelope shapes here mirror a typical
// input-array-based responses API: discriminated union items instead of a
// flat message array, and a typed SSE event stream instead of raw
// chat-completion deltas.
package responses

// Item is one element of the wire "input" array: a discriminated union by
// Type (message / function_call / function_call_output).
type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ItemContent `json:"content,omitempty"`

	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
	ID        string `json:"id,omitempty"`
}

// ItemContent is one text fragment of a message item.
type ItemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Tool is a wire function declaration.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Request is the full wire request body.
type Request struct {
	Model        string   `json:"model"`
	Input        []Item   `json:"input"`
	Tools        []Tool   `json:"tools,omitempty"`
	ToolChoice   any      `json:"tool_choice,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Stream       bool     `json:"stream"`
	Temperature  *float64 `json:"temperature,omitempty"`
	TopP         *float64 `json:"top_p,omitempty"`
}

// event types emitted by the Responses SSE stream that this backend cares
// about; every other event type is ignored by the streaming adapter.
const (
	EventOutputTextDelta   = "response.output_text.delta"
	EventOutputItemAdded   = "response.output_item.added"
	EventOutputItemDone    = "response.output_item.done"
	EventFunctionArgsDelta = "response.function_call_arguments.delta"
	EventFunctionArgsDone  = "response.function_call_arguments.done"
	EventCompleted         = "response.completed"
	EventFailed            = "response.failed"
)

// StreamEnvelope is the outer shape of every Responses SSE data line: a
// "type" discriminator plus the union of the type-specific fields, decoded
// in one pass; each event type fills only the fields it uses.
type StreamEnvelope struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta,omitempty"`
	ItemID   string          `json:"item_id,omitempty"`
	Item     *StreamItem     `json:"item,omitempty"`
	Response *StreamResponse `json:"response,omitempty"`
}

// StreamItem describes an output_item.added/.done payload's item field.
type StreamItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamResponse describes the terminal response.completed payload,
// carrying usage totals.
type StreamResponse struct {
	Usage *Usage `json:"usage,omitempty"`
}

// Usage mirrors the wire usage accounting fields.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
