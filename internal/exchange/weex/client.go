// Package weex is a REST adapter for WEEX perpetual futures.
package weex

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"agent-team-trader/internal/interfaces"
)

const (
	DefaultBaseURL = "https://api-contract.weex.com"

	// SuccessCode is what the exchange returns in "code" when a call is accepted.
	SuccessCode = "00000"
)

var ErrMissingCredentials = errors.New("weex credentials missing")

// APIError is a rejected call, either a non-2xx status or a non-success code.
type APIError struct {
	Status int
	Code   string
	Msg    string
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("weex %s: status %d code %s: %s", e.Path, e.Status, e.Code, e.Msg)
}

type Credentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string
}

// CredentialsFromEnv reads WEEX_API_KEY, WEEX_SECRET_KEY and WEEX_PASSPHRASE.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:     os.Getenv("WEEX_API_KEY"),
		SecretKey:  os.Getenv("WEEX_SECRET_KEY"),
		Passphrase: os.Getenv("WEEX_PASSPHRASE"),
	}
}

func (c Credentials) Valid() bool {
	return c.APIKey != "" && c.SecretKey != "" && c.Passphrase != ""
}

type Config struct {
	BaseURL            string
	RateLimitPerSecond float64
	Burst              int
	Timeout            time.Duration
	Locale             string
}

type Client struct {
	cfg     Config
	creds   Credentials
	http    *resty.Client
	limiter *rate.Limiter
	now     func() time.Time
}

var _ interfaces.Exchange = (*Client)(nil)

func New(cfg Config, creds Credentials) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Locale == "" {
		cfg.Locale = "en-US"
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("locale", cfg.Locale)

	return &Client{
		cfg:     cfg,
		creds:   creds,
		http:    client,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		now:     time.Now,
	}
}

// Sign computes base64(HMAC-SHA256(secret, timestamp+METHOD+path+body)). For GET
// requests path includes the query string with its leading "?".
func Sign(secret, timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + strings.ToUpper(method) + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// query renders key/value pairs in the given order. The signature covers the
// exact string sent, so the order must not change between signing and sending.
func query(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pairs[i])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return b.String()
}

func (c *Client) authHeaders(method, path, body string) map[string]string {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	return map[string]string{
		"ACCESS-KEY":        c.creds.APIKey,
		"ACCESS-SIGN":       Sign(c.creds.SecretKey, ts, method, path, body),
		"ACCESS-TIMESTAMP":  ts,
		"ACCESS-PASSPHRASE": c.creds.Passphrase,
	}
}

func (c *Client) publicGet(ctx context.Context, path, qs string) (gjson.Result, error) {
	return c.do(ctx, "GET", path, qs, nil, false)
}

func (c *Client) privateGet(ctx context.Context, path, qs string) (gjson.Result, error) {
	return c.do(ctx, "GET", path, qs, nil, true)
}

func (c *Client) post(ctx context.Context, path string, body any) (gjson.Result, error) {
	return c.do(ctx, "POST", path, "", body, true)
}

func (c *Client) do(ctx context.Context, method, path, qs string, body any, auth bool) (gjson.Result, error) {
	if auth && !c.creds.Valid() {
		return gjson.Result{}, ErrMissingCredentials
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	target := path
	if qs != "" {
		target += "?" + qs
	}

	req := c.http.R().SetContext(ctx)
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return gjson.Result{}, fmt.Errorf("encode %s body: %w", path, err)
		}
		req.SetBody(payload)
	}
	if auth {
		req.SetHeaders(c.authHeaders(method, target, string(payload)))
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("weex %s %s: %w", method, path, err)
	}
	return check(path, resp.StatusCode(), resp.Body())
}

// check rejects non-2xx replies and envelopes carrying a failure code.
func check(path string, status int, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		if status >= 300 {
			return gjson.Result{}, &APIError{Status: status, Msg: strings.TrimSpace(string(body)), Path: path}
		}
		return gjson.Result{}, fmt.Errorf("weex %s: response is not JSON", path)
	}
	root := gjson.ParseBytes(body)
	code := root.Get("code")
	if status >= 300 || (root.IsObject() && code.Exists() && !successCode(code.String())) {
		return gjson.Result{}, &APIError{Status: status, Code: code.String(), Msg: root.Get("msg").String(), Path: path}
	}
	return root, nil
}

// data returns the payload. Some endpoints wrap their result in
// {"code","msg","data"}; others return it bare.
func data(root gjson.Result) gjson.Result {
	if root.IsObject() && root.Get("data").Exists() {
		return root.Get("data")
	}
	return root
}

func successCode(code string) bool {
	switch code {
	case SuccessCode, "0", "200":
		return true
	}
	return false
}
