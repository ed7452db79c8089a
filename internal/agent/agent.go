// Package agent is the single-agent trader: one chat model that gathers data
// and places orders itself through tool calls, remembering its recent turns.
package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/logger"
)

// DefaultMaxRounds bounds the model/tool exchanges within one turn.
const DefaultMaxRounds = 10

var ErrTooManyRounds = errors.New("agent still calling tools after the round limit")

type Config struct {
	// HistorySize is how many messages carry over between turns: 0 selects
	// llm.DefaultHistorySize, negative keeps none.
	HistorySize int
	MaxRounds   int
	// System overrides the built-in trading system prompt.
	System string
}

// Turn is the outcome of one AnalyzeAndTrade call.
type Turn struct {
	Reply     string
	ToolCalls []string
	Trades    int
	Elapsed   time.Duration
}

// Trader runs one turn at a time. The conversation history belongs to the
// trader; only the prompt and the final reply of each turn are kept, so a
// trimmed history never holds a tool result without its call.
type Trader struct {
	model     interfaces.ChatModel
	tools     *Toolbox
	history   *llm.History
	system    string
	maxRounds int

	mu sync.Mutex
}

func New(model interfaces.ChatModel, tools *Toolbox, cfg Config) *Trader {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.System == "" {
		cfg.System = systemPrompt(tools.cfg.AllowedSymbols, tools.cfg.MaxSize, tools.cfg.MinConfidence)
	}
	return &Trader{
		model:     model,
		tools:     tools,
		history:   llm.NewHistory(cfg.HistorySize),
		system:    cfg.System,
		maxRounds: cfg.MaxRounds,
	}
}

// MaxSize is the largest order the toolbox accepts.
func (t *Trader) MaxSize() decimal.Decimal { return t.tools.cfg.MaxSize }

// History returns the retained conversation, oldest first.
func (t *Trader) History() []llm.Message { return t.history.Messages() }

// Trades is the number of orders placed over the trader's lifetime.
func (t *Trader) Trades() int64 { return t.tools.Trades() }

// AnalyzeAndTrade sends prompt after the retained history, runs every tool
// call the model asks for and returns once it answers without tools. A failed
// turn leaves the history unchanged.
func (t *Trader) AnalyzeAndTrade(ctx context.Context, prompt string) (Turn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op := logger.StartOperation(ctx, "agent.AnalyzeAndTrade", "history", t.history.Len())
	ctx = op.GetContext()

	user := llm.Message{Role: "user", Content: prompt}
	messages := make([]llm.Message, 0, t.history.Len()+2)
	messages = append(messages, llm.Message{Role: "system", Content: t.system})
	messages = append(messages, t.history.Messages()...)
	messages = append(messages, user)

	defs := t.tools.Definitions()
	before := t.tools.Trades()
	var turn Turn

	for round := 0; ; round++ {
		if round == t.maxRounds {
			op.EndWithError(ErrTooManyRounds, "tool_calls", len(turn.ToolCalls))
			return turn, ErrTooManyRounds
		}

		msg, err := t.model.Chat(ctx, messages, defs)
		if err != nil {
			op.EndWithError(err, "round", round)
			return turn, err
		}
		if len(msg.ToolCalls) == 0 {
			turn.Reply = msg.Content
			break
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			logger.Info(ctx, "Agent calling tool", "tool", call.Function.Name, "round", round)
			turn.ToolCalls = append(turn.ToolCalls, call.Function.Name)
			messages = append(messages, llm.ToolResult(call, t.tools.Call(ctx, call)))
		}
	}

	if turn.Reply == "" {
		turn.Reply = "Analysis complete."
	}
	turn.Trades = int(t.tools.Trades() - before)
	turn.Elapsed = op.Duration()
	t.history.Append(user, llm.Message{Role: "assistant", Content: turn.Reply})

	op.End("tool_calls", len(turn.ToolCalls), "trades", turn.Trades)
	return turn, nil
}

type RunConfig struct {
	// Prompts are sent in order, one per turn; the last repeats. Empty uses
	// DefaultPrompt for Symbol.
	Prompts  []string
	Symbol   string
	Interval time.Duration
	// Turns bounds the run; 0 runs until ctx is done.
	Turns int
}

// Summary counts what a run did.
type Summary struct {
	Turns  int
	Errors int
	Trades int
}

// Run drives turns Interval apart. A one-turn run returns the turn's error;
// longer runs log failures and carry on.
func (t *Trader) Run(ctx context.Context, cfg RunConfig, onTurn func(n int, turn Turn)) (Summary, error) {
	prompts := cfg.Prompts
	if len(prompts) == 0 {
		prompts = []string{DefaultPrompt(cfg.Symbol, t.MaxSize())}
	}

	var s Summary
	for n := 1; cfg.Turns <= 0 || n <= cfg.Turns; n++ {
		if ctx.Err() != nil {
			break
		}
		logger.Info(ctx, "Running agent turn", "turn", n, "symbol", cfg.Symbol)

		turn, err := t.AnalyzeAndTrade(ctx, prompts[min(n, len(prompts))-1])
		s.Turns++
		s.Trades += turn.Trades
		if err != nil {
			s.Errors++
			if cfg.Turns == 1 {
				return s, err
			}
			logger.ErrorWithErr(ctx, "Agent turn failed", err, "turn", n)
		} else if onTurn != nil {
			onTurn(n, turn)
		}

		if cfg.Turns > 0 && n == cfg.Turns {
			break
		}
		if !wait(ctx, cfg.Interval) {
			break
		}
	}

	logger.Info(ctx, "Agent run finished", "turns", s.Turns, "errors", s.Errors, "trades", s.Trades, "total_trades", t.Trades())
	return s, nil
}

// wait sleeps for d and reports false if ctx ended first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
