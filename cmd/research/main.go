// research runs the pipeline end to end over CSV price files:
// factors -> signals -> backtest -> metrics, printing a JSON summary.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"quantdash/internal/app"
	"quantdash/internal/backtest"
	"quantdash/internal/calendar"
	"quantdash/internal/logger"
	"quantdash/internal/repository"
	"quantdash/internal/strategy"
	"quantdash/pkg/csvsource"
	"quantdash/pkg/riskfree"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var flags struct {
	start            string
	end              string
	assets           []string
	strategies       []string
	dataDir          string
	outDir           string
	initialCash      float64
	commission       float64
	riskFree         float64
	riskFreeTreasury bool
	skipBacktest     bool
}

var rootCmd = &cobra.Command{
	Use:   "research",
	Short: "Run the research pipeline: factors, signals, backtest, metrics",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flags.start, "start", "", "start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&flags.end, "end", "", "end date (YYYY-MM-DD)")
	rootCmd.Flags().StringSliceVar(&flags.assets, "assets", nil, "asset ids (default: all known)")
	rootCmd.Flags().StringSliceVar(&flags.strategies, "strategies", nil,
		fmt.Sprintf("strategy names (default: %s)", strings.Join(strategy.Names(), ",")))
	rootCmd.Flags().StringVar(&flags.dataDir, "data-dir", "data", "directory with <asset>.csv price files")
	rootCmd.Flags().StringVar(&flags.outDir, "out", "", "directory to write result JSON files (default: discard)")
	rootCmd.Flags().Float64Var(&flags.initialCash, "initial-cash", 10_000_000, "initial cash per backtest")
	rootCmd.Flags().Float64Var(&flags.commission, "commission", 0.001, "one-way commission rate")
	rootCmd.Flags().Float64Var(&flags.riskFree, "risk-free", 0, "annualized risk-free rate for Sharpe/Sortino")
	rootCmd.Flags().BoolVar(&flags.riskFreeTreasury, "risk-free-treasury", false,
		"fetch the risk-free rate from the US treasury yield curve (overrides --risk-free)")
	rootCmd.Flags().BoolVar(&flags.skipBacktest, "skip-backtest", false, "compute factors and signals only")
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.New()
	defer log.Sync()
	ctx := logger.AddToContext(context.Background(), log)

	start, end, err := parseRange(flags.start, flags.end)
	if err != nil {
		return err
	}

	assetIDs := flags.assets
	if len(assetIDs) == 0 {
		for assetID := range csvsource.DefaultCategories {
			assetIDs = append(assetIDs, assetID)
		}
	}

	cfg := backtest.DefaultConfig()
	cfg.InitialCash = decimal.NewFromFloat(flags.initialCash)
	cfg.CommissionPct = decimal.NewFromFloat(flags.commission)

	handler := app.ResearchHandler{
		PriceSource: csvsource.New(flags.dataDir),
	}
	if flags.outDir != "" {
		sink, err := repository.NewResultsRepository(flags.outDir)
		if err != nil {
			return err
		}
		handler.Sink = sink
	}

	riskFreeRate := flags.riskFree
	if flags.riskFreeTreasury {
		curve, err := riskfree.NewClient().YieldCurve(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("fetching treasury yields: %w", err)
		}
		riskFreeRate = curve.Rate(3) // 3-month bill
		log.Infow("using treasury risk-free rate", "rate", riskFreeRate)
	}

	summary, err := handler.RunResearch(ctx, app.RunResearchInput{
		AssetIDs:      assetIDs,
		StrategyNames: flags.strategies,
		Start:         start,
		End:           end,
		Config:        cfg,
		Normalizer:    calendar.DefaultOptions(),
		RiskFreeRate:  riskFreeRate,
		SkipBacktest:  flags.skipBacktest,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if len(summary.Errors) > 0 {
		return fmt.Errorf("%d asset(s) failed", len(summary.Errors))
	}
	return nil
}

func parseRange(startArg, endArg string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startArg != "" {
		start, err = time.Parse(time.DateOnly, startArg)
		if err != nil {
			return start, end, fmt.Errorf("bad --start: %w", err)
		}
	}
	if endArg != "" {
		end, err = time.Parse(time.DateOnly, endArg)
		if err != nil {
			return start, end, fmt.Errorf("bad --end: %w", err)
		}
	}
	return start, end, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
