// Package openai is an Analyzer backed by an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/trace"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	HistorySize int
}

// ConfigFromEnv fills the credentials from OPENAI_API_KEY and OPENAI_BASE_URL.
func ConfigFromEnv(cfg Config) Config {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	return cfg
}

type Analyzer struct {
	cfg     Config
	client  *resty.Client
	history *llm.History
}

var (
	_ interfaces.Analyzer  = (*Analyzer)(nil)
	_ interfaces.ChatModel = (*Analyzer)(nil)
)

func New(cfg Config) *Analyzer {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/chat/completions")
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(max(cfg.MaxRetries, 0)).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Analyzer{cfg: cfg, client: client, history: llm.NewHistory(cfg.HistorySize)}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Tools       []llm.Tool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
}

// Complete sends the system prompt, the retained history and the new prompt.
// Only successful exchanges are added to the history.
func (a *Analyzer) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	user := llm.Message{Role: "user", Content: prompt}
	messages := make([]llm.Message, 0, a.history.Len()+2)
	if system != "" {
		messages = append(messages, llm.Message{Role: "system", Content: system})
	}
	messages = append(messages, a.history.Messages()...)
	messages = append(messages, user)

	msg, err := a.send(ctx, messages, nil)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(msg.Content)
	a.history.Append(user, llm.Message{Role: "assistant", Content: text})
	return text, nil
}

// Chat sends messages as given, offering tools, and returns the assistant
// turn. The analyzer's own history is not touched: the caller owns the
// conversation.
func (a *Analyzer) Chat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	ctx, span := trace.StartSpan(ctx, "openai-chat")
	defer span.End()

	msg, err := a.send(ctx, messages, tools)
	if err != nil {
		return llm.Message{}, err
	}
	msg.Role = "assistant"
	msg.Content = strings.TrimSpace(msg.Content)
	return msg, nil
}

func (a *Analyzer) send(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Message, error) {
	if a.cfg.APIKey == "" {
		return llm.Message{}, llm.ErrMissingCredentials
	}

	body := chatRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	if len(tools) > 0 {
		body.Tools = tools
		body.ToolChoice = "auto"
	}

	var out chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(a.cfg.APIKey).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return llm.Message{}, err
	}
	if resp.IsError() {
		return llm.Message{}, &llm.StatusError{Provider: "openai", Code: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Choices) == 0 {
		return llm.Message{}, llm.ErrEmptyCompletion
	}
	return out.Choices[0].Message, nil
}

// History exposes the retained conversation, mainly for inspection in tests.
func (a *Analyzer) History() []llm.Message {
	return a.history.Messages()
}
