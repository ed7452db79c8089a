// Package noop is the Analyzer used when no provider is configured.
package noop

import (
	"context"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
)

// Reply carries no JSON object, so every stage falls back to its default signal
// and the cycle resolves to Hold.
const Reply = "noop analyzer: no provider configured"

type Analyzer struct{}

var (
	_ interfaces.Analyzer  = Analyzer{}
	_ interfaces.ChatModel = Analyzer{}
)

func New() Analyzer { return Analyzer{} }

func (Analyzer) Complete(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Reply, nil
}

// Chat answers without calling any tool, so an agent turn ends at once.
func (Analyzer) Chat(ctx context.Context, _ []llm.Message, _ []llm.Tool) (llm.Message, error) {
	if err := ctx.Err(); err != nil {
		return llm.Message{}, err
	}
	return llm.Message{Role: "assistant", Content: Reply}, nil
}
