package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/atlas/config"
	"github.com/rustyeddy/atlas/engine"
	"github.com/rustyeddy/atlas/journal"
	"github.com/rustyeddy/atlas/logger"
	"github.com/rustyeddy/atlas/market"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trader from a config file",
	Long: `Run the trading loop using settings from a configuration file.

Every cycle walks the configured symbols in order, evaluates the entry
gates, sizes the position and submits an entry/stop/target bracket when
everything passes. Runs until interrupted.

Examples:
  trader run -f atlas.yaml
  trader run -f atlas.yaml --paper --metrics-addr :9090`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runPaper       bool
	runMetricsAddr string
	runOnce        bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.Flags().BoolVar(&runPaper, "paper", false, "trade on a local paper book instead of the broker account")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(cfg, runPaper, runMetricsAddr); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	j, err := journal.Open(cfg.Journal.Type, cfg.Journal.DBPath, cfg.Journal.BracketsFile, cfg.Journal.EquityFile)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	gw, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}
	opts, err := schedulerOptions(cfg, gw, j, log)
	if err != nil {
		return err
	}
	sched := engine.NewScheduler(opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, log)
		defer shutdown(srv, log)
	}

	log.Info("trader starting",
		zap.String("strategy", cfg.Strategy.Version),
		zap.String("environment", cfg.Broker.Environment),
		zap.Bool("paper", cfg.Broker.Paper),
		zap.Int("symbols", len(cfg.Symbols)),
		zap.String("journal", cfg.Journal.Type),
	)

	if runOnce {
		printReport(cmd.OutOrStdout(), cfg.Symbols, sched.RunCycle(ctx))
		return nil
	}
	return sched.Run(ctx)
}

// applyOverrides folds command-line flags into cfg and validates it.
func applyOverrides(cfg *config.Config, paper bool, metricsAddr string) error {
	if paper {
		cfg.Broker.Paper = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func printReport(w io.Writer, symbols []market.Symbol, rep engine.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tOUTCOME\tREASON")
	for _, sym := range symbols {
		res, ok := rep.Result(sym.Name)
		if !ok {
			fmt.Fprintf(tw, "%s\t-\tnot reached\n", sym.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Symbol, res.Outcome, res.Reason)
	}
	tw.Flush()
	fmt.Fprintf(w, "entered %d, skipped %d, failed %d\n",
		rep.Count(engine.Entered), rep.Count(engine.Skipped), rep.Count(engine.Failed))
}

func serveMetrics(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

func shutdown(srv *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("metrics shutdown", zap.Error(err))
	}
}
