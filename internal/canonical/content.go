package canonical

import "encoding/json"

// Block is a tagged variant over the four canonical content-block kinds. Go
// has no sum types, so this mirrors the wire shape directly (one struct, a
// Type discriminator, fields that only apply to some tags left zero for the
// others) and every adapter pattern-matches on Type rather than relying on
// an open interface hierarchy, per the "runtime dispatch on tagged content
// blocks" design note.
type Block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string  `json:"tool_use_id,omitempty"`
	IsError   bool    `json:"is_error,omitempty"`
	Content   []Block `json:"content,omitempty"`

	// thinking (opaque payload, passed through untouched by backends that drop it)
	Thinking string `json:"thinking,omitempty"`

	// present on any block; stripped before adapters see it
	CacheControl json.RawMessage `json:"cache_control,omitempty"`
}

const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockThinking   = "thinking"
)

// StripCacheControl removes cache_control markers from every content block
// in msgs, recursively into tool_result sub-content, in place. Every
// backend adapter runs this before building its wire payload.
func StripCacheControl(msgs []Message) {
	for i := range msgs {
		stripBlocks(msgs[i].Content)
	}
}

func stripBlocks(blocks []Block) {
	for i := range blocks {
		blocks[i].CacheControl = nil
		if len(blocks[i].Content) > 0 {
			stripBlocks(blocks[i].Content)
		}
	}
}

// FlattenToolResultContent renders a tool_result's content blocks as plain
// text, the way backends without a structured tool-result wire shape expect
// it (e.g. OpenAI Responses' function_call_output.output).
func FlattenToolResultContent(blocks []Block) string {
	out := ""
	for _, b := range blocks {
		switch b.Type {
		case BlockText:
			out += b.Text
		default:
			if raw, err := json.Marshal(b); err == nil {
				out += string(raw)
			}
		}
	}
	return out
}
