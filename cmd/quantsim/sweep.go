package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/engine"
	"github.com/newthinker/quantsim/internal/logger"
	"github.com/newthinker/quantsim/internal/store"
)

var (
	sweepBars    string
	sweepImpactK string
	sweepLongPct string
	sweepWorkers int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter sweep",
	Long:  "Run the grid of impact_k x long_pct combinations concurrently and rank by net Sharpe",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepBars, "bars", "", "Parquet bar/feature table (overrides config)")
	sweepCmd.Flags().StringVar(&sweepImpactK, "impact-k", "0.5,0.7,1.0", "Comma-separated impact_k values")
	sweepCmd.Flags().StringVar(&sweepLongPct, "long-pct", "0.2,0.3", "Comma-separated long_pct values (short_pct follows)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 4, "Concurrent runs")

	rootCmd.AddCommand(sweepCmd)
}

type sweepPoint struct {
	impactK float64
	longPct float64
	sharpe  float64
	cost    float64
	err     error
}

func runSweep(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if sweepBars != "" {
		cfg.Data.BarsPath = sweepBars
	}
	if cfg.Data.BarsPath == "" {
		return fmt.Errorf("no bar table: set data.bars_path or pass --bars")
	}

	impactKs, err := parseFloats(sweepImpactK)
	if err != nil {
		return fmt.Errorf("invalid --impact-k: %w", err)
	}
	longPcts, err := parseFloats(sweepLongPct)
	if err != nil {
		return fmt.Errorf("invalid --long-pct: %w", err)
	}

	// Load once; runs are read-only over the shared table.
	bars, err := store.ReadBars(cfg.Data.BarsPath)
	if err != nil {
		return err
	}

	var points []sweepPoint
	for _, k := range impactKs {
		for _, lp := range longPcts {
			points = append(points, sweepPoint{impactK: k, longPct: lp})
		}
	}

	// Runs share no state; each gets its own config copy and engine.
	sem := make(chan struct{}, max(sweepWorkers, 1))
	var wg sync.WaitGroup
	for i := range points {
		wg.Add(1)
		go func(p *sweepPoint) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			runCfg := *cfg
			runCfg.Costs.ImpactK = p.impactK
			runCfg.Strategy.LongPct = p.longPct
			runCfg.Strategy.ShortPct = p.longPct

			p.sharpe, p.cost, p.err = sweepRun(&runCfg, bars, log)
		}(&points[i])
	}
	wg.Wait()

	sort.Slice(points, func(i, j int) bool {
		return points[i].sharpe > points[j].sharpe
	})

	fmt.Println("=== Parameter Sweep ===")
	fmt.Printf("%-10s %-10s %-10s %-12s\n", "impact_k", "long_pct", "sharpe", "total_cost")
	for _, p := range points {
		if p.err != nil {
			fmt.Printf("%-10.2f %-10.2f failed: %v\n", p.impactK, p.longPct, p.err)
			continue
		}
		fmt.Printf("%-10.2f %-10.2f %-10.3f $%-12.2f\n", p.impactK, p.longPct, p.sharpe, p.cost)
	}
	return nil
}

func sweepRun(cfg *config.Config, bars []core.Bar, log *zap.Logger) (float64, float64, error) {
	eng, err := engine.New(cfg, log)
	if err != nil {
		return 0, 0, err
	}
	result, err := eng.Run(bars)
	if err != nil {
		return 0, 0, err
	}
	return result.Metrics.SharpeRatio, result.Metrics.TotalCost, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
