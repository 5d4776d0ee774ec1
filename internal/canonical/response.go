package canonical

import "encoding/json"

// Response is the aggregated (non-streaming) canonical Messages response,
// built by collapsing an Event sequence when the client did not request
// stream=true. Backends that are stream-only internally are always
// streamed and then collected here.
type Response struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Role       string  `json:"role"`
	Model      string  `json:"model"`
	Content    []Block `json:"content"`
	StopReason string  `json:"stop_reason"`
	Usage      Usage   `json:"usage"`
}

// Collector accumulates a canonical Event sequence into a Response. Pass
// Collector.Collect as the emit callback of a StreamState-driven adapter.
type Collector struct {
	resp        Response
	openText    *string
	openToolIdx map[int]*Block
}

// NewCollector creates an empty Collector for the given model.
func NewCollector(model string) *Collector {
	return &Collector{
		resp:        Response{Type: "message", Role: "assistant", Model: model},
		openToolIdx: make(map[int]*Block),
	}
}

// Collect is an emit callback compatible with StreamState.
func (c *Collector) Collect(ev Event) {
	switch p := ev.Payload.(type) {
	case MessageStart:
		c.resp.ID = p.Message.ID
	case ContentBlockStart:
		switch p.ContentBlock.Type {
		case BlockText:
			text := ""
			c.openText = &text
		case BlockToolUse:
			raw, _ := json.Marshal(p.ContentBlock.Input)
			b := Block{Type: BlockToolUse, ID: p.ContentBlock.ID, Name: p.ContentBlock.Name, Input: raw}
			c.resp.Content = append(c.resp.Content, b)
			c.openToolIdx[p.Index] = &c.resp.Content[len(c.resp.Content)-1]
		}
	case ContentBlockDelta:
		switch p.Delta.Type {
		case "text_delta":
			if c.openText != nil {
				*c.openText += p.Delta.Text
			}
		case "input_json_delta":
			if b, ok := c.openToolIdx[p.Index]; ok {
				b.Input = json.RawMessage(string(b.Input) + p.Delta.PartialJSON)
			}
		}
	case ContentBlockStop:
		if c.openText != nil {
			c.resp.Content = append(c.resp.Content, Block{Type: BlockText, Text: *c.openText})
			c.openText = nil
		}
	case MessageDelta:
		c.resp.StopReason = p.Delta.StopReason
		c.resp.Usage = p.Usage
	}
}

// Response returns the accumulated result. Call only after Finalize has run.
func (c *Collector) Response() Response {
	return c.resp
}
