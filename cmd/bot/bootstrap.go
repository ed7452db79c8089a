package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"agent-team-trader/internal/agent"
	"agent-team-trader/internal/compliance"
	"agent-team-trader/internal/engine"
	"agent-team-trader/internal/engine/engineobs"
	"agent-team-trader/internal/eod"
	"agent-team-trader/internal/eod/eodobs"
	"agent-team-trader/internal/exchange/exchangeobs"
	"agent-team-trader/internal/exchange/weex"
	"agent-team-trader/internal/gate"
	"agent-team-trader/internal/interfaces"
	"agent-team-trader/internal/llm/claude"
	"agent-team-trader/internal/llm/llmobs"
	"agent-team-trader/internal/llm/noop"
	"agent-team-trader/internal/llm/openai"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/metrics"
	"agent-team-trader/internal/news"
	"agent-team-trader/internal/stage"
	"agent-team-trader/internal/store"
	"agent-team-trader/internal/tradelog"
)

type app struct {
	cfg      *store.Config
	exchange interfaces.Exchange
	engine   interfaces.Engine
	reporter *compliance.Reporter
	metrics  *metrics.Recorder
}

// bootstrap loads .env, the logger and the config, then wires the pipeline.
func bootstrap(ctx context.Context, configPath string) (*app, error) {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}
	compressOldLogs(ctx)

	rec := metrics.New()
	ex := initializeExchange(ctx, cfg)
	reporter := compliance.NewReporter(ex, cfg.LLM.ModelLabel, cfg.Timeouts.Compliance(), rec.RecordUpload)

	return &app{
		cfg:      cfg,
		exchange: ex,
		engine:   initializeEngine(ctx, cfg, ex, reporter, rec),
		reporter: reporter,
		metrics:  rec,
	}, nil
}

// loadConfig reads the YAML config, falling back to defaults when the file is absent.
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		return store.Default(), nil
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old decision journals if retention is configured
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Ignoring invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := tradelog.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeExchange builds the exchange client. Outside LIVE mode orders and
// compliance records stay local.
func initializeExchange(ctx context.Context, cfg *store.Config) interfaces.Exchange {
	creds := weex.CredentialsFromEnv()
	var ex interfaces.Exchange = weex.New(weex.Config{
		BaseURL:            cfg.Exchange.BaseURL,
		RateLimitPerSecond: cfg.Exchange.RateLimitPerSecond,
		Burst:              cfg.Exchange.Burst,
		Timeout:            time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
		Locale:             cfg.Exchange.Locale,
	}, creds)

	if cfg.IsLive() {
		if !creds.Valid() {
			logger.Warn(ctx, "LIVE mode without complete WEEX credentials - private calls will fail")
		}
	} else {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		ex = weex.NewPaper(ex, cfg.Exchange.QuoteCoin)
	}

	return exchangeobs.Wrap(ex)
}

// noHistory turns adapter-side conversation history off.
const noHistory = -1

// stageAnalyzer builds the analyzer one pipeline stage uses. Stages are
// stateless: each call sends only the system prompt and that cycle's context.
func stageAnalyzer(ctx context.Context, cfg *store.Config) interfaces.Analyzer {
	return initializeAnalyzer(ctx, cfg, noHistory)
}

// initializeAnalyzer builds an analyzer for the configured provider keeping
// historySize messages (negative for none).
func initializeAnalyzer(ctx context.Context, cfg *store.Config, historySize int) interfaces.Analyzer {
	var analyzer interfaces.Analyzer
	switch cfg.LLM.Provider {
	case "OPENAI":
		analyzer = openai.New(openaiConfig(cfg, historySize))
	case "CLAUDE":
		analyzer = claude.New(claude.ConfigFromEnv(claude.Config{
			Endpoint:    cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.Timeouts.Analysis(),
			MaxRetries:  cfg.LLM.MaxRetries,
			HistorySize: historySize,
		}))
	default:
		analyzer = noop.New()
	}

	return llmobs.Wrap(analyzer, cfg.LLM.Provider)
}

func openaiConfig(cfg *store.Config, historySize int) openai.Config {
	return openai.ConfigFromEnv(openai.Config{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.Timeouts.Analysis(),
		MaxRetries:  cfg.LLM.MaxRetries,
		HistorySize: historySize,
	})
}

// initializeChatModel builds the tool-calling model for the agent trader. The
// trader keeps the conversation, so the adapter keeps none.
func initializeChatModel(cfg *store.Config) (interfaces.ChatModel, error) {
	var model interfaces.ChatModel
	switch cfg.LLM.Provider {
	case "OPENAI":
		model = openai.New(openaiConfig(cfg, noHistory))
	case "NOOP":
		model = noop.New()
	default:
		return nil, fmt.Errorf("agent mode needs llm.provider OPENAI or NOOP, got '%s'", cfg.LLM.Provider)
	}
	return llmobs.WrapChat(model, cfg.LLM.Provider), nil
}

// initializeAgent builds the single-agent trader over the app's exchange and
// compliance reporter.
func initializeAgent(cfg *store.Config, ex interfaces.Exchange, reporter *compliance.Reporter) (*agent.Trader, error) {
	model, err := initializeChatModel(cfg)
	if err != nil {
		return nil, err
	}
	tools := agent.NewToolbox(ex, reporter, agent.ToolboxConfig{
		AllowedSymbols: cfg.AllowedSymbols,
		QuoteCoin:      cfg.Exchange.QuoteCoin,
		Granularity:    cfg.Candles.Granularity,
		CandleLimit:    cfg.Candles.Limit,
		MaxSize:        cfg.Risk.MaxSize(),
		MinConfidence:  max(cfg.Risk.MinConfidence, agent.DefaultMinConfidence),
		Timeouts: stage.Timeouts{
			MarketData: cfg.Timeouts.MarketData(),
			Account:    cfg.Timeouts.Account(),
			Order:      cfg.Timeouts.Order(),
		},
		Journal: true,
	})
	return agent.New(model, tools, agent.Config{HistorySize: cfg.LLM.HistorySize}), nil
}

func initializeEngine(ctx context.Context, cfg *store.Config, ex interfaces.Exchange, reporter *compliance.Reporter, rec *metrics.Recorder) interfaces.Engine {
	if cfg.LLM.Provider == "NOOP" {
		logger.Warn(ctx, "No LLM provider configured - every stage falls back to its default signal")
	}

	timeouts := stage.Timeouts{
		MarketData: cfg.Timeouts.MarketData(),
		Account:    cfg.Timeouts.Account(),
		Analysis:   cfg.Timeouts.Analysis(),
		Order:      cfg.Timeouts.Order(),
	}
	maxSize := cfg.Risk.MaxSize()

	var headlines interfaces.HeadlineSource
	if cfg.News.Enabled {
		headlines = news.NewService(cfg.News)
	}

	exec := stage.NewExecutor(ex, cfg.Order.ClientIDPrefix, maxSize, timeouts.Order)
	eng := engine.New(engine.Deps{
		Market:         stage.NewMarket(ex, stageAnalyzer(ctx, cfg), cfg.Candles.Granularity, cfg.Candles.Limit, timeouts),
		Sentiment:      stage.NewSentiment(ex, stageAnalyzer(ctx, cfg), headlines, timeouts),
		Risk:           stage.NewRisk(ex, ex, stageAnalyzer(ctx, cfg), cfg.Exchange.QuoteCoin, maxSize, cfg.Risk.MaxRiskPct, timeouts),
		Gate:           gate.New(exec, reporter, cfg.Risk.MinConfidence, maxSize),
		Reporter:       reporter,
		Metrics:        rec,
		AllowedSymbols: cfg.AllowedSymbols,
		Journal:        true,
	})

	return engineobs.Wrap(eng)
}

func (a *app) run(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid run options: %w", err)
	}

	if a.cfg.Metrics.Addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
				logger.ErrorWithErr(ctx, "Metrics server stopped", err)
			}
		}()
	}

	rc := engine.RunnerConfig{
		Mode:     engine.Mode(a.cfg.Runner.Mode),
		Symbol:   a.cfg.Symbol,
		Interval: a.cfg.Runner.Interval(),
		Cycles:   a.cfg.Runner.HFTCycles,
	}
	if rc.Mode == engine.ModeHFT {
		rc.Interval = a.cfg.Runner.HFTInterval()
	}

	logger.Info(ctx, "Bot started",
		"mode", a.cfg.Mode,
		"run_mode", rc.Mode,
		"symbol", rc.Symbol,
		"provider", a.cfg.LLM.Provider,
		"max_position_size", a.cfg.Risk.MaxSize().String(),
	)

	s, err := engine.NewRunner(a.engine, a.reporter, rc).Run(ctx)
	logger.Info(ctx, "Bot stopped",
		"cycles", s.Cycles,
		"errors", s.Errors,
		"executed", s.Executed,
		"alerted", s.Alerted,
		"blocked", s.Blocked,
		"failed", s.Failed,
	)

	// refresh today's report with this run's cycles
	if _, serr := eodobs.Wrap(eod.NewSummarizer()).SummarizeDay(context.WithoutCancel(ctx), time.Now()); serr != nil {
		logger.Warn(ctx, "Daily summary not written", "error", serr.Error())
	}
	return err
}

// runAgent drives the single-agent trader and prints each turn's reply to out.
func (a *app) runAgent(ctx context.Context, f agentFlags, out io.Writer) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid agent options: %w", err)
	}
	tr, err := initializeAgent(a.cfg, a.exchange, a.reporter)
	if err != nil {
		return err
	}

	rc := agent.RunConfig{Symbol: a.cfg.Symbol, Interval: a.cfg.Runner.Interval(), Turns: 1}
	switch f.mode {
	case "single", "":
	case "continuous":
		rc.Turns = 0
	case "demo":
		rc.Prompts = agent.DemoPrompts(a.cfg.Symbol, tr.MaxSize())
		rc.Turns = len(rc.Prompts)
		rc.Interval = 0
	default:
		return fmt.Errorf("agent mode must be 'single', 'continuous', or 'demo', got '%s'", f.mode)
	}
	if f.prompt != "" {
		rc.Prompts = []string{f.prompt}
	}

	logger.Info(ctx, "Agent started",
		"mode", a.cfg.Mode,
		"agent_mode", f.mode,
		"symbol", rc.Symbol,
		"provider", a.cfg.LLM.Provider,
		"history_size", a.cfg.LLM.HistorySize,
	)

	s, err := tr.Run(ctx, rc, func(n int, turn agent.Turn) {
		fmt.Fprintf(out, "--- turn %d: %d tool calls, %d trades, %s ---\n%s\n",
			n, len(turn.ToolCalls), turn.Trades, turn.Elapsed.Round(time.Millisecond), turn.Reply)
	})
	logger.Info(ctx, "Agent stopped", "turns", s.Turns, "errors", s.Errors, "trades", s.Trades)
	return err
}

// close waits for pending compliance uploads and flushes spans.
func (a *app) close() {
	a.reporter.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = logger.Shutdown(ctx)
}
