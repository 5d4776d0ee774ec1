// Package canonical defines the Anthropic-Messages-compatible request,
// response, and streamed-event shapes that every backend adapter translates
// to and from. It is the one format the dispatch orchestrator and the HTTP
// surface ever speak; backend wire formats live in internal/backend/*.
package canonical

import "encoding/json"

// Request is the accepted shape of a POST /v1/messages body.
type Request struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	System        *SystemField    `json:"system,omitempty"`
	Tools         []ToolDecl      `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	MaxTokens     int             `json:"max_tokens,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
}

// Message is one conversation turn. Content is either a bare string or an
// ordered sequence of Blocks; UnmarshalJSON normalizes both into Blocks so
// every adapter downstream only ever deals with the block form.
type Message struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}

// UnmarshalJSON accepts content as either a JSON string or an array of blocks.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	blocks, err := decodeContent(raw.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

func decodeContent(raw json.RawMessage) ([]Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return nil, nil
		}
		return []Block{{Type: BlockText, Text: asString}}, nil
	}
	var blocks []Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// SystemField supports the string-or-block-array shape of a system prompt.
type SystemField struct {
	Text   string
	Blocks []Block
}

func (s *SystemField) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.Text = asString
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	s.Blocks = blocks
	return nil
}

// Flatten concatenates a string system prompt or a sequence of text blocks
// into a single string, the shape every backend adapter needs for its own
// system-prompt handling.
func (s *SystemField) Flatten() string {
	if s == nil {
		return ""
	}
	if s.Text != "" {
		return s.Text
	}
	out := ""
	for _, b := range s.Blocks {
		if b.Type == BlockText {
			if out != "" {
				out += "\n\n"
			}
			out += b.Text
		}
	}
	return out
}

// ToolDecl is a canonical tool declaration.
type ToolDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}
