package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"quantdash/internal/backtest"
	"quantdash/internal/calculator"
	"quantdash/internal/calendar"
	"quantdash/internal/domain"
	"quantdash/internal/logger"
	"quantdash/internal/strategy"
)

// AllAssets requests a multi-asset run over every asset in the input.
const AllAssets = "ALL"

type RunBacktestInput struct {
	StrategyName string
	// AssetID is a single asset id, or AllAssets for an equal-weighted
	// run across AssetIDs.
	AssetID      string
	AssetIDs     []string
	Start        time.Time
	End          time.Time
	Config       backtest.Config
	Normalizer   calendar.Options
	RiskFreeRate float64
}

type RunBacktestResponse struct {
	Result    *backtest.Result
	Scorecard calculator.PerformanceScorecard
}

// RunBacktest executes one on-demand backtest for a single asset or, with
// AssetID == "ALL", an equal-weighted run over the listed assets. Assets
// that fail data-quality checks or produce no signals are skipped in
// multi-asset mode; a single-asset run surfaces the failure directly.
func (h ResearchHandler) RunBacktest(ctx context.Context, in RunBacktestInput) (*RunBacktestResponse, error) {
	log := logger.FromContext(ctx)

	strat, err := strategy.New(in.StrategyName)
	if err != nil {
		return nil, err
	}

	researchIn := RunResearchInput{
		Start:      in.Start,
		End:        in.End,
		Config:     in.Config,
		Normalizer: in.Normalizer,
	}

	if !strings.EqualFold(in.AssetID, AllAssets) {
		table, normalized, err := h.prepareAsset(ctx, in.AssetID, researchIn)
		if err != nil {
			return nil, err
		}
		set, err := strategy.GenerateSignals(strat, table, in.AssetID)
		if err != nil {
			return nil, err
		}
		if set.Empty() {
			return nil, fmt.Errorf("strategy %s produced no signals for %s", strat.ID(), in.AssetID)
		}
		result, err := backtest.Run(normalized, set, in.Config)
		if err != nil {
			return nil, err
		}
		return &RunBacktestResponse{
			Result:    result,
			Scorecard: calculator.ComputeMetrics(result, in.RiskFreeRate),
		}, nil
	}

	if len(in.AssetIDs) == 0 {
		return nil, fmt.Errorf("multi-asset backtest requires at least one asset id")
	}

	prices := map[string]domain.PriceSeries{}
	signals := map[string]domain.SignalSet{}
	for _, assetID := range in.AssetIDs {
		table, normalized, err := h.prepareAsset(ctx, assetID, researchIn)
		if err != nil {
			log.Warnw("skipping asset in multi-asset run", "asset", assetID, "error", err)
			continue
		}
		set, err := strategy.GenerateSignals(strat, table, assetID)
		if err != nil || set.Empty() {
			log.Warnw("no usable signals", "asset", assetID, "strategy", strat.ID())
			continue
		}
		prices[assetID] = normalized
		signals[assetID] = set
	}

	result, err := backtest.RunMulti(prices, signals, strat.ID(), in.Config)
	if err != nil {
		return nil, err
	}
	return &RunBacktestResponse{
		Result:    result,
		Scorecard: calculator.ComputeMetrics(result, in.RiskFreeRate),
	}, nil
}
