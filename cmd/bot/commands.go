package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"agent-team-trader/internal/engine"
	"agent-team-trader/internal/eod"
	"agent-team-trader/internal/eod/eodobs"
	"agent-team-trader/internal/logger"
	"agent-team-trader/internal/ta"
)

type agentFlags struct {
	mode     string
	symbol   string
	interval int
	prompt   string
}

type runFlags struct {
	mode        string
	symbol      string
	interval    int
	cycles      int
	hftInterval float64
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bot",
		Short:         "Multi-stage futures trading bot",
		Long:          "Runs technical, sentiment and risk analysis on a futures contract, combines them by weighted vote and gates execution behind confidence and size limits.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config")

	root.AddCommand(newRunCmd(&configPath), newAgentCmd(&configPath), newIndicatorsCmd(&configPath), newSummaryCmd())
	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run decision cycles",
		Long: `Runs decision cycles in one of three modes:

  single      one cycle, non-zero exit on failure
  continuous  a cycle every --interval seconds until interrupted
  hft         --cycles cycles, --hft-interval seconds apart

Example:
  bot run --mode single --symbol cmt_btcusdt
  bot run --mode hft --cycles 10 --hft-interval 15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			applyRunFlags(cmd, a, f)
			return a.run(ctx)
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", "", "single, continuous or hft (default from config)")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "contract symbol, e.g. cmt_btcusdt")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "seconds between continuous cycles")
	cmd.Flags().IntVar(&f.cycles, "cycles", 0, "number of hft cycles")
	cmd.Flags().Float64Var(&f.hftInterval, "hft-interval", 0, "seconds between hft cycles")
	return cmd
}

// applyRunFlags overrides config values with the flags the user set.
func applyRunFlags(cmd *cobra.Command, a *app, f runFlags) {
	r := &a.cfg.Runner
	if cmd.Flags().Changed("mode") {
		r.Mode = f.mode
	}
	if cmd.Flags().Changed("symbol") {
		a.cfg.Symbol = f.symbol
	}
	if cmd.Flags().Changed("interval") {
		r.IntervalSeconds = f.interval
	}
	if cmd.Flags().Changed("cycles") {
		r.HFTCycles = f.cycles
	}
	if cmd.Flags().Changed("hft-interval") {
		r.HFTIntervalSeconds = f.hftInterval
	}
}

func newAgentCmd(configPath *string) *cobra.Command {
	var f agentFlags

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the single-agent trader",
		Long: `Runs one tool-calling model that fetches market data, indicators and
account state itself and may place orders. It remembers its last
llm.history_size messages across turns.

  single      one turn, non-zero exit on failure
  continuous  a turn every --interval seconds until interrupted
  demo        one turn per capability, then a full analysis

Example:
  bot agent --symbol cmt_ethusdt
  bot agent --mode continuous --interval 600`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			applyAgentFlags(cmd, a, f)
			return a.runAgent(ctx, f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", "single", "single, continuous or demo")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "contract symbol, e.g. cmt_btcusdt")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "seconds between continuous turns")
	cmd.Flags().StringVar(&f.prompt, "prompt", "", "instruction sent each turn (default: full analysis of --symbol)")
	return cmd
}

func applyAgentFlags(cmd *cobra.Command, a *app, f agentFlags) {
	if cmd.Flags().Changed("symbol") {
		a.cfg.Symbol = strings.ToLower(f.symbol)
	}
	if cmd.Flags().Changed("interval") {
		a.cfg.Runner.IntervalSeconds = f.interval
	}
}

func newIndicatorsCmd(configPath *string) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Print the indicator snapshot for a symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if symbol == "" {
				symbol = a.cfg.Symbol
			}
			if !a.cfg.SymbolAllowed(symbol) {
				return fmt.Errorf("%w: %s", engine.ErrSymbolNotAllowed, symbol)
			}

			ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeouts.MarketData())
			defer cancel()
			candles, err := a.exchange.Candles(ctx, symbol, a.cfg.Candles.Granularity, a.cfg.Candles.Limit)
			if err != nil {
				logger.ErrorWithErr(ctx, "Failed to fetch candles", err, "symbol", symbol)
				return err
			}

			out := map[string]any{
				"symbol":      symbol,
				"granularity": a.cfg.Candles.Granularity,
				"candles":     len(candles),
				"indicators":  ta.Compute(candles).Display(),
				"at":          time.Now().UTC().Format(time.RFC3339),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "contract symbol (default from config)")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Write the daily CSV summary of the decision journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_ = godotenv.Load()
			if err := logger.Init(); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			day := time.Now().UTC()
			if date != "" {
				var err error
				if day, err = time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			}

			p, err := eodobs.Wrap(eod.NewSummarizer()).SummarizeDay(ctx, day)
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no cycles recorded for", day.Format("2006-01-02"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "UTC day as YYYY-MM-DD (default today)")
	return cmd
}
