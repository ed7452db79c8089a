package interfaces

import (
	"context"

	"agent-team-trader/internal/llm"
)

// Analyzer produces free-form analysis text for a system prompt and a user
// prompt carrying the stage's JSON context. The output is untrusted and must go
// through extraction before use.
type Analyzer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ChatModel runs one assistant turn over a caller-owned conversation, offering
// tools. A reply with ToolCalls asks the caller to run them and continue.
type ChatModel interface {
	Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error)
}
