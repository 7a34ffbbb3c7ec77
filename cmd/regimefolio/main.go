// regimefolio: macro regime classification, per-regime allocation and
// regime-driven backtesting.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/seenimoa/regimefolio/internal/config"
	"github.com/seenimoa/regimefolio/internal/infra"
	"github.com/seenimoa/regimefolio/internal/provider"
	"github.com/seenimoa/regimefolio/internal/providers"
	"github.com/seenimoa/regimefolio/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state, set up in PersistentPreRunE.
var (
	cfg     *config.Config
	runID   string
	metrics *infra.RunMetrics
	reg     *provider.Registry
	format  report.Format
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "regimefolio",
	Short: "Macro regime classification and regime-driven allocation",
	Long: `regimefolio classifies each month into a macroeconomic regime
(Overheating, Recovery, Stagflation, Contraction) from FRED indicators,
finds a Sharpe-maximising allocation per regime, and backtests a portfolio
that rebalances whenever the regime changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		infra.SetupLogging(cfg.Logging.Level, cfg.Logging.Format)

		f, _ := cmd.Flags().GetString("format")
		if format, err = report.ParseFormat(f); err != nil {
			return err
		}

		runID = uuid.NewString()
		log.Logger = log.With().Str("run_id", runID).Logger()
		metrics = infra.NewRunMetrics()

		client := infra.NewClient(infra.ClientOptions{
			Timeout:         time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
			RequestsPerSec:  cfg.HTTP.RequestsPerSec,
			MaxRetryElapsed: time.Duration(cfg.HTTP.MaxRetrySec) * time.Second,
			BreakerFailures: uint32(cfg.HTTP.BreakerFailures),
		})
		reg = provider.NewRegistry()
		return providers.RegisterAllTo(reg, client, providers.Options{
			FREDAPIKey:  cfg.FRED.APIKey,
			FREDBaseURL: cfg.FRED.BaseURL,
			YahooURL:    cfg.Market.BaseURL,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("format", "text", "report format (text, json, yaml, html)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(fetchReturnsCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("regimefolio %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Classify Command ---

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify months into macro regimes from FRED data",
	Long: `Fetch GDP, CPI, treasury yields, M2 and M2 velocity from FRED,
label every month with a regime and write the label file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyDateFlags(cmd); err != nil {
			return err
		}
		rep := report.New(runID, time.Now())
		if _, err := classify(cmd.Context(), rep); err != nil {
			return err
		}
		return finish(rep)
	},
}

func init() {
	classifyCmd.Flags().String("since", "", "first month shown in the report (default: classifier.report_since)")
}

// --- Fetch Returns Command ---

var fetchReturnsCmd = &cobra.Command{
	Use:   "fetch-returns",
	Short: "Build the monthly asset return file from Yahoo Finance prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyDateFlags(cmd); err != nil {
			return err
		}
		if err := fetchReturns(cmd.Context()); err != nil {
			return err
		}
		return finish(nil)
	},
}

// --- Optimize Command ---

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the Sharpe-maximising allocation for each regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		rep := report.New(runID, time.Now())
		if err := optimize(rep); err != nil {
			return err
		}
		return finish(rep)
	},
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the regime-driven allocation on daily prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyDateFlags(cmd); err != nil {
			return err
		}
		rep := report.New(runID, time.Now())
		if err := runBacktest(cmd.Context(), rep); err != nil {
			return err
		}
		return finish(rep)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify, optimize and backtest in one pass",
	Long: `Run every stage in order, chained through the configured files:
classify → fetch-returns → optimize → backtest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyDateFlags(cmd); err != nil {
			return err
		}
		ctx := cmd.Context()
		rep := report.New(runID, time.Now())

		if _, err := classify(ctx, rep); err != nil {
			return err
		}
		if reuse, _ := cmd.Flags().GetBool("reuse-returns"); !reuse {
			if err := fetchReturns(ctx); err != nil {
				return err
			}
		}
		if err := optimize(rep); err != nil {
			return err
		}
		if err := runBacktest(ctx, rep); err != nil {
			return err
		}
		return finish(rep)
	},
}

func init() {
	for _, c := range []*cobra.Command{fetchReturnsCmd, backtestCmd, runCmd} {
		c.Flags().String("start", "", "first price date, YYYY-MM-DD (default: market.start)")
		c.Flags().String("end", "", "price end date, exclusive, YYYY-MM-DD (default: market.end)")
	}
	runCmd.Flags().String("since", "", "first month shown in the report (default: classifier.report_since)")
	runCmd.Flags().Bool("reuse-returns", false, "use the existing monthly return file instead of fetching prices")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, providers and file status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  regimefolio System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Run ID:        %s\n", runID)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Market:        %s → %s\n", cfg.Market.Start, cfg.Market.End)
		fmt.Printf("    Symbols:       %v\n", cfg.Market.Symbols)
		fmt.Printf("    Trend window:  %d months (min %d trends)\n", cfg.Classifier.TrendWindow, cfg.Classifier.MinSignals)
		fmt.Printf("    Min cash:      %.2f\n", cfg.Optimizer.MinCash)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		ping, _ := cmd.Flags().GetBool("ping")
		fmt.Println("  Providers:")
		for _, info := range reg.List() {
			line := fmt.Sprintf("    %-10s %v", info.Name, info.Models)
			if ping {
				p, _ := reg.Get(info.Name)
				if err := p.Ping(cmd.Context()); err != nil {
					line += "  unreachable: " + err.Error()
				} else {
					line += "  ok"
				}
			}
			fmt.Println(line)
		}
		fmt.Println()

		fmt.Println("  Files:")
		for _, f := range []struct{ name, path string }{
			{"labels", cfg.Files.Labels},
			{"returns", cfg.Files.Returns},
			{"allocations", cfg.Files.Allocations},
			{"backtest", cfg.Files.Backtest},
		} {
			state := "missing"
			if st, err := os.Stat(f.path); err == nil {
				state = fmt.Sprintf("%d bytes, %s", st.Size(), st.ModTime().Format(time.RFC3339))
			}
			fmt.Printf("    %-12s %s (%s)\n", f.name+":", f.path, state)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "check that each provider is reachable")
}
