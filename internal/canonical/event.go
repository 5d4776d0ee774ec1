package canonical

// Event is one item of the canonical streamed-response protocol: an
// ordered sequence of message_start, interleaved
// content_block_start/delta/stop triples, message_delta, message_stop. The
// HTTP surface serializes each Event as one SSE "event: <Type>\ndata: <JSON>"
// pair; Payload is already shaped to match what the client expects verbatim.
type Event struct {
	Type    string
	Payload any
}

// StopReason values. stop_reason is fully determined by whether any
// emitted block was tool_use.
const (
	StopEndTurn  = "end_turn"
	StopToolUse  = "tool_use"
	StopMaxToken = "max_tokens"
)

// Usage carries the token accounting the client sees in message_delta.
// These fields are populated only from telemetry backends actually
// report, and are otherwise zero.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageStart is the payload of a message_start event.
type MessageStart struct {
	Type    string       `json:"type"`
	Message MessageShell `json:"message"`
}

// MessageShell is the (initially empty) message envelope inside message_start.
type MessageShell struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []any  `json:"content"`
}

// ContentBlockStart is the payload of a content_block_start event.
type ContentBlockStart struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock StartedBlock `json:"content_block"`
}

// StartedBlock describes the block a content_block_start opens; only the
// fields relevant to Type are populated.
type StartedBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// ContentBlockDelta is the payload of a content_block_delta event.
type ContentBlockDelta struct {
	Type  string     `json:"type"`
	Index int        `json:"index"`
	Delta BlockDelta `json:"delta"`
}

// BlockDelta is either a text_delta or an input_json_delta fragment.
type BlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockStop is the payload of a content_block_stop event.
type ContentBlockStop struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDelta is the payload of a message_delta event.
type MessageDelta struct {
	Type  string           `json:"type"`
	Delta MessageDeltaBody `json:"delta"`
	Usage Usage            `json:"usage"`
}

// MessageDeltaBody carries the terminal stop_reason.
type MessageDeltaBody struct {
	StopReason string `json:"stop_reason"`
}

// MessageStop is the payload of a message_stop event.
type MessageStop struct {
	Type string `json:"type"`
}
