// Package claude is an Analyzer backed by the Anthropic messages API.
package claude

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm"
	"agent-team-trader/internal/trace"
)

const (
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	APIVersion      = "2023-06-01"
)

type Config struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
	HistorySize int
}

// ConfigFromEnv fills the key from CLAUDE_API_KEY. Set CLAUDE_API_ENDPOINT when
// going through a proxy.
func ConfigFromEnv(cfg Config) Config {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("CLAUDE_API_KEY")
	}
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" && cfg.Endpoint == "" {
		cfg.Endpoint = ep
	}
	return cfg
}

type Analyzer struct {
	cfg     Config
	client  *resty.Client
	history *llm.History
}

var _ interfaces.Analyzer = (*Analyzer)(nil)

func New(cfg Config) *Analyzer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("anthropic-version", APIVersion).
		SetRetryCount(max(cfg.MaxRetries, 0)).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500 || r.StatusCode() == 529
		})

	return &Analyzer{cfg: cfg, client: client, history: llm.NewHistory(cfg.HistorySize)}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

func (a *Analyzer) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	if a.cfg.APIKey == "" {
		return "", llm.ErrMissingCredentials
	}

	user := llm.Message{Role: "user", Content: prompt}
	messages := append(a.history.Messages(), user)

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", a.cfg.APIKey).
		SetBody(messagesRequest{
			Model:       a.cfg.Model,
			System:      system,
			Messages:    messages,
			MaxTokens:   a.cfg.MaxTokens,
			Temperature: a.cfg.Temperature,
		}).
		Post(a.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", &llm.StatusError{Provider: "claude", Code: resp.StatusCode(), Body: resp.String()}
	}

	text := completionText(resp.Body())
	if text == "" {
		return "", llm.ErrEmptyCompletion
	}
	a.history.Append(user, llm.Message{Role: "assistant", Content: text})
	return text, nil
}

// completionText pulls the assistant text out of the reply. Proxies in front of
// the API do not all use the messages shape, so a few common layouts are tried.
func completionText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	var parts []string
	gjson.GetBytes(body, "content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" || !block.Get("type").Exists() {
			if s := block.Get("text").String(); s != "" {
				parts = append(parts, s)
			}
		}
		return true
	})
	if len(parts) > 0 {
		return strings.TrimSpace(strings.Join(parts, ""))
	}
	for _, path := range []string{"completion", "output_text", "result", "choices.0.message.content", "choices.0.text"} {
		if s := strings.TrimSpace(gjson.GetBytes(body, path).String()); s != "" {
			return s
		}
	}
	return ""
}
