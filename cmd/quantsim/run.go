package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/engine"
	"github.com/newthinker/quantsim/internal/logger"
	"github.com/newthinker/quantsim/internal/store"
)

var (
	runBars    string
	runOut     string
	runSeed    int64
	runFeature string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest",
	Long:  "Run a cost-aware backtest over a Parquet bar/feature table and print performance statistics",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBars, "bars", "", "Parquet bar/feature table (overrides config)")
	runCmd.Flags().StringVar(&runOut, "out", "", "Directory for equity curve and trade ledger output")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Run seed (overrides config)")
	runCmd.Flags().StringVar(&runFeature, "feature", "", "Signal feature column (overrides config)")

	rootCmd.AddCommand(runCmd)
}

// loadConfig resolves the shared --config flag, falling back to defaults.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}
	log.Warn("no config file specified, using defaults")
	return config.Defaults(), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if runBars != "" {
		cfg.Data.BarsPath = runBars
	}
	if runSeed != 0 {
		cfg.Engine.Seed = runSeed
	}
	if runFeature != "" {
		cfg.Strategy.SignalFeature = runFeature
	}
	if cfg.Data.BarsPath == "" {
		return fmt.Errorf("no bar table: set data.bars_path or pass --bars")
	}

	bars, err := store.ReadBars(cfg.Data.BarsPath)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger.Component(log, "engine"))
	if err != nil {
		return err
	}
	result, err := eng.Run(bars)
	if err != nil {
		return err
	}

	printResult(result)

	if runOut != "" {
		if err := store.WriteEquityCurve(filepath.Join(runOut, "equity.parquet"), result.Curve); err != nil {
			return fmt.Errorf("writing equity curve: %w", err)
		}
		if err := store.WriteTrades(filepath.Join(runOut, "trades.parquet"), result.Trades); err != nil {
			return fmt.Errorf("writing trade ledger: %w", err)
		}
		fmt.Printf("\nArtifacts written to %s\n", runOut)
	}
	return nil
}

func printResult(result *engine.Result) {
	m := result.Metrics

	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:  %s\n", result.RunID)
	fmt.Printf("Period:  %s to %s (%d trading days)\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"), m.TotalPeriods)
	fmt.Println()
	fmt.Printf("Final value:       $%.2f\n", m.FinalValue)
	fmt.Printf("Annualized return: %.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("Annualized vol:    %.2f%%\n", m.AnnualizedVolatility*100)
	fmt.Printf("Sharpe (net):      %.3f\n", m.SharpeRatio)
	fmt.Printf("Sharpe (gross):    %.3f\n", m.GrossSharpeRatio)
	fmt.Printf("Sortino:           %.3f\n", m.SortinoRatio)
	fmt.Printf("Calmar:            %.3f\n", m.CalmarRatio)
	fmt.Printf("Max drawdown:      %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("CVaR 95/99:        %.4f / %.4f\n", m.CVaR95, m.CVaR99)
	fmt.Printf("Win rate:          %.2f%%\n", m.WinRate*100)
	fmt.Printf("Total cost:        $%.2f over %d trades\n", m.TotalCost, len(result.Trades))

	if len(result.Warnings) > 0 {
		fmt.Printf("\n%d warnings (%d data quality, %d no liquidity, %d capital constraint)\n",
			len(result.Warnings),
			countWarnings(result, "data_quality"),
			countWarnings(result, "no_liquidity"),
			countWarnings(result, "capital_constraint"))
	}
}

func countWarnings(result *engine.Result, kind string) int {
	n := 0
	for _, w := range result.Warnings {
		if string(w.Kind) == kind {
			n++
		}
	}
	return n
}
