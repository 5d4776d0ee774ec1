package canonical

import "fmt"

// toolBlock tracks bookkeeping for one open tool_use block.
type toolBlock struct {
	callID string
	index  int
	closed bool
}

// StreamState is the shared per-request state machine every backend
// streaming adapter drives while pulling events off its own wire format.
// It owns block-index allocation and enforces the framing invariants:
// every content_block_start has exactly one content_block_stop before
// message_delta, indices are dense and 0-based, and stop_reason is fully
// determined by whether any block was tool_use.
type StreamState struct {
	emit  func(Event)
	model string
	msgID string

	started      bool
	textIndex    *int
	toolByItem   map[string]*toolBlock
	lastToolItem string
	nextIndex    int
	hasToolUse   bool
	usage        Usage
}

// NewStreamState creates a state machine that calls emit for every canonical
// event it produces, in order.
func NewStreamState(model, msgID string, emit func(Event)) *StreamState {
	if msgID == "" {
		msgID = "msg_stream"
	}
	return &StreamState{
		emit:       emit,
		model:      model,
		msgID:      msgID,
		toolByItem: make(map[string]*toolBlock),
	}
}

// EnsureStarted emits message_start exactly once.
func (s *StreamState) EnsureStarted() {
	if s.started {
		return
	}
	s.started = true
	s.emit(Event{Type: "message_start", Payload: MessageStart{
		Type: "message_start",
		Message: MessageShell{
			ID:      s.msgID,
			Type:    "message",
			Role:    "assistant",
			Model:   s.model,
			Content: []any{},
		},
	}})
}

// EnsureTextBlock opens a text block if one is not already open and returns
// its index.
func (s *StreamState) EnsureTextBlock() int {
	s.EnsureStarted()
	if s.textIndex != nil {
		return *s.textIndex
	}
	idx := s.nextIndex
	s.nextIndex++
	s.textIndex = &idx
	s.emit(Event{Type: "content_block_start", Payload: ContentBlockStart{
		Type:  "content_block_start",
		Index: idx,
		ContentBlock: StartedBlock{
			Type: BlockText,
		},
	}})
	return idx
}

// EmitTextDelta ensures a text block is open and appends a text_delta.
func (s *StreamState) EmitTextDelta(text string) {
	if text == "" {
		return
	}
	idx := s.EnsureTextBlock()
	s.emit(Event{Type: "content_block_delta", Payload: ContentBlockDelta{
		Type:  "content_block_delta",
		Index: idx,
		Delta: BlockDelta{Type: "text_delta", Text: text},
	}})
}

// CloseTextBlock closes the open text block, if any.
func (s *StreamState) CloseTextBlock() {
	if s.textIndex == nil {
		return
	}
	idx := *s.textIndex
	s.textIndex = nil
	s.emit(Event{Type: "content_block_stop", Payload: ContentBlockStop{
		Type:  "content_block_stop",
		Index: idx,
	}})
}

// OpenToolBlock closes any open text block (text must not straddle a
// tool-use block start) and opens a new tool_use block keyed by the
// backend's opaque itemID, returning its index.
func (s *StreamState) OpenToolBlock(itemID, callID, name string) int {
	s.EnsureStarted()
	s.CloseTextBlock()
	idx := s.nextIndex
	s.nextIndex++
	s.hasToolUse = true
	if itemID == "" {
		itemID = fmt.Sprintf("tool_%d", idx)
	}
	s.toolByItem[itemID] = &toolBlock{callID: callID, index: idx}
	s.lastToolItem = itemID
	s.emit(Event{Type: "content_block_start", Payload: ContentBlockStart{
		Type:  "content_block_start",
		Index: idx,
		ContentBlock: StartedBlock{
			Type: BlockToolUse,
			ID:   callID,
			Name: name,
		},
	}})
	return idx
}

// EmitToolArgsDelta appends an input_json_delta fragment to the tool block
// named by itemID, falling back to the most recently opened tool block if
// itemID is unknown.
func (s *StreamState) EmitToolArgsDelta(itemID, partialJSON string) {
	if partialJSON == "" {
		return
	}
	tb, ok := s.toolByItem[itemID]
	if !ok {
		tb, ok = s.toolByItem[s.lastToolItem]
		if !ok {
			return
		}
	}
	if tb.closed {
		return
	}
	s.emit(Event{Type: "content_block_delta", Payload: ContentBlockDelta{
		Type:  "content_block_delta",
		Index: tb.index,
		Delta: BlockDelta{Type: "input_json_delta", PartialJSON: partialJSON},
	}})
}

// CloseToolBlock closes the tool block for itemID, if open.
func (s *StreamState) CloseToolBlock(itemID string) {
	tb, ok := s.toolByItem[itemID]
	if !ok || tb.closed {
		return
	}
	tb.closed = true
	s.emit(Event{Type: "content_block_stop", Payload: ContentBlockStop{
		Type:  "content_block_stop",
		Index: tb.index,
	}})
}

// SetUsage records the latest usage telemetry the backend reported.
func (s *StreamState) SetUsage(u Usage) {
	s.usage = u
}

// Finalize closes every still-open block and emits message_delta +
// message_stop. If the stream never started (the backend produced no
// content at all), it first synthesizes a minimal message_start + empty
// text block pair so the client still sees a well-formed stream.
func (s *StreamState) Finalize() {
	if !s.started {
		s.EnsureStarted()
		s.EnsureTextBlock()
	}
	s.CloseTextBlock()
	for id, tb := range s.toolByItem {
		if !tb.closed {
			s.CloseToolBlock(id)
		}
	}
	stopReason := StopEndTurn
	if s.hasToolUse {
		stopReason = StopToolUse
	}
	s.emit(Event{Type: "message_delta", Payload: MessageDelta{
		Type:  "message_delta",
		Delta: MessageDeltaBody{StopReason: stopReason},
		Usage: s.usage,
	}})
	s.emit(Event{Type: "message_stop", Payload: MessageStop{Type: "message_stop"}})
}

// HasToolUse reports whether any tool_use block was ever opened.
func (s *StreamState) HasToolUse() bool { return s.hasToolUse }
