// Package llm holds what the analyzer adapters share: conversation history and
// the common error values.
package llm

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultHistorySize is how many messages an analyzer keeps when none is configured.
const DefaultHistorySize = 20

var (
	ErrMissingCredentials = errors.New("llm credentials missing")
	ErrEmptyCompletion    = errors.New("llm returned no completion")
)

// StatusError is a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Code, e.Body)
}

// Retryable reports whether the request is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// Message is one chat turn. ToolCalls is set on assistant turns that ask for
// tools; ToolCallID links a "tool" turn to the call it answers.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// History is a bounded conversation log owned by one analyzer instance.
// A nil History records nothing.
type History struct {
	mu    sync.Mutex
	limit int
	msgs  []Message
}

// NewHistory returns a history keeping the last limit messages. Zero selects
// DefaultHistorySize; a negative limit returns nil, which disables history.
func NewHistory(limit int) *History {
	if limit < 0 {
		return nil
	}
	if limit == 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Append adds messages and drops the oldest beyond the limit.
func (h *History) Append(msgs ...Message) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msgs...)
	if over := len(h.msgs) - h.limit; over > 0 {
		h.msgs = append([]Message(nil), h.msgs[over:]...)
	}
}

// Messages returns a copy of the retained messages, oldest first.
func (h *History) Messages() []Message {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}

func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func (h *History) Reset() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.msgs = nil
	h.mu.Unlock()
}
