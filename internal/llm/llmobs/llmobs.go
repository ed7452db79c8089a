package llmobs

import (
	"context"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/trace"
)

// observableAnalyzer wraps an Analyzer with logging and tracing
type observableAnalyzer struct {
	analyzer interfaces.Analyzer
	provider string
}

// Compile-time interface check
var _ interfaces.Analyzer = (*observableAnalyzer)(nil)

// Wrap wraps an analyzer with observability middleware
func Wrap(analyzer interfaces.Analyzer, provider string) interfaces.Analyzer {
	return &observableAnalyzer{
		analyzer: analyzer,
		provider: provider,
	}
}

// Complete requests an analysis with observability
func (oa *observableAnalyzer) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting analysis",
		"provider", oa.provider,
		"system_len", len(system),
		"prompt_len", len(prompt),
	)

	out, err := oa.analyzer.Complete(ctx, system, prompt)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Analysis request failed", err,
			"provider", oa.provider,
		)
		return "", err
	}

	logger.DebugSkip(ctx, 1, "Analysis received",
		"provider", oa.provider,
		"response_len", len(out),
	)

	return out, nil
}

type observableChat struct {
	model    interfaces.ChatModel
	provider string
}

var _ interfaces.ChatModel = (*observableChat)(nil)

// WrapChat wraps a chat model with observability middleware
func WrapChat(model interfaces.ChatModel, provider string) interfaces.ChatModel {
	return &observableChat{model: model, provider: provider}
}

func (oc *observableChat) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Chat")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Requesting chat turn",
		"provider", oc.provider,
		"messages", len(messages),
		"tools", len(tools),
	)

	msg, err := oc.model.Chat(ctx, messages, tools)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Chat request failed", err,
			"provider", oc.provider,
		)
		return llm.Message{}, err
	}

	logger.DebugSkip(ctx, 1, "Chat turn received",
		"provider", oc.provider,
		"tool_calls", len(msg.ToolCalls),
		"response_len", len(msg.Content),
	)

	return msg, nil
}
