// Package app wires the pipeline stages together: normalize -> factors ->
// signals -> simulate -> score. Price loading and persistence stay behind
// interfaces; the core performs no I/O of its own.
package app

import (
	"context"
	"fmt"
	"time"

	"quantdash/internal/backtest"
	"quantdash/internal/calculator"
	"quantdash/internal/calendar"
	"quantdash/internal/domain"
	"quantdash/internal/factor"
	"quantdash/internal/logger"
	"quantdash/internal/strategy"
)

// PriceSource supplies cleaned daily bars for an asset id and date range,
// ordered with no duplicate dates. Implementations own any blocking I/O.
type PriceSource interface {
	Load(ctx context.Context, assetID string, start, end time.Time) (domain.PriceSeries, error)
}

// ResultSink receives computed outputs. Persistence is a collaborator, not
// part of the core; DiscardSink is the default.
type ResultSink interface {
	StoreFactors(ctx context.Context, assetID string, table *domain.FactorTable) error
	StoreSignals(ctx context.Context, set domain.SignalSet) error
	StoreBacktest(ctx context.Context, result *backtest.Result, scorecard calculator.PerformanceScorecard) error
}

type DiscardSink struct{}

func (DiscardSink) StoreFactors(ctx context.Context, assetID string, table *domain.FactorTable) error {
	return nil
}

func (DiscardSink) StoreSignals(ctx context.Context, set domain.SignalSet) error {
	return nil
}

func (DiscardSink) StoreBacktest(ctx context.Context, result *backtest.Result, scorecard calculator.PerformanceScorecard) error {
	return nil
}

type ResearchHandler struct {
	PriceSource PriceSource
	Sink        ResultSink
}

type RunResearchInput struct {
	AssetIDs      []string
	StrategyNames []string
	Start         time.Time
	End           time.Time
	Config        backtest.Config
	Normalizer    calendar.Options
	// RiskFreeRate is the annualized rate used by Sharpe and Sortino.
	RiskFreeRate float64
	SkipBacktest bool
}

type StrategyRunSummary struct {
	SignalRows int                              `json:"signalRows"`
	NumEntry   int                              `json:"numEntry"`
	NumExit    int                              `json:"numExit"`
	Scorecard  *calculator.PerformanceScorecard `json:"scorecard,omitempty"`
}

type AssetSummary struct {
	FactorRows int                            `json:"factorRows"`
	FilledRows int                            `json:"filledRows"`
	Strategies map[string]*StrategyRunSummary `json:"strategies"`
	Error      string                         `json:"error,omitempty"`
}

type ResearchSummary struct {
	Assets            map[string]*AssetSummary `json:"assets"`
	TotalFactorRows   int                      `json:"totalFactorRows"`
	TotalSignalRows   int                      `json:"totalSignalRows"`
	TotalBacktestRuns int                      `json:"totalBacktestRuns"`
	Errors            []string                 `json:"errors,omitempty"`
	ElapsedMs         int64                    `json:"elapsedMs"`
}

// RunResearch runs the full pipeline for every (asset, strategy) pair.
// Data-quality failures stop the pipeline for that asset only; the run
// continues with the rest and reports them in the summary.
func (h ResearchHandler) RunResearch(ctx context.Context, in RunResearchInput) (*ResearchSummary, error) {
	log := logger.FromContext(ctx)
	startedAt := time.Now()

	strategyNames := in.StrategyNames
	if len(strategyNames) == 0 {
		strategyNames = strategy.Names()
	}
	for _, name := range strategyNames {
		if _, err := strategy.New(name); err != nil {
			return nil, err
		}
	}

	summary := &ResearchSummary{Assets: map[string]*AssetSummary{}}

	for _, assetID := range in.AssetIDs {
		assetSummary := &AssetSummary{Strategies: map[string]*StrategyRunSummary{}}
		summary.Assets[assetID] = assetSummary

		table, normalized, err := h.prepareAsset(ctx, assetID, in)
		if err != nil {
			log.Warnw("skipping asset", "asset", assetID, "error", err)
			assetSummary.Error = err.Error()
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", assetID, err))
			continue
		}
		assetSummary.FactorRows = table.Len()
		assetSummary.FilledRows = calendar.FilledCount(normalized)
		summary.TotalFactorRows += table.Len()

		if err := h.sink().StoreFactors(ctx, assetID, table); err != nil {
			return nil, fmt.Errorf("storing factors for %s: %w", assetID, err)
		}

		for _, name := range strategyNames {
			strat, err := strategy.New(name)
			if err != nil {
				return nil, err
			}
			set, err := strategy.GenerateSignals(strat, table, assetID)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s/%s: %s", assetID, name, err))
				continue
			}
			runSummary := &StrategyRunSummary{
				SignalRows: len(set.Signals),
				NumEntry:   set.NumEntry,
				NumExit:    set.NumExit,
			}
			assetSummary.Strategies[name] = runSummary
			if set.Empty() {
				log.Infow("no signals generated", "asset", assetID, "strategy", name)
				continue
			}
			summary.TotalSignalRows += len(set.Signals)

			if err := h.sink().StoreSignals(ctx, set); err != nil {
				return nil, fmt.Errorf("storing signals for %s/%s: %w", assetID, name, err)
			}

			if in.SkipBacktest {
				continue
			}

			result, err := backtest.Run(normalized, set, in.Config)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s/%s: %s", assetID, name, err))
				continue
			}
			scorecard := calculator.ComputeMetrics(result, in.RiskFreeRate)
			runSummary.Scorecard = &scorecard
			summary.TotalBacktestRuns++

			if err := h.sink().StoreBacktest(ctx, result, scorecard); err != nil {
				return nil, fmt.Errorf("storing backtest for %s/%s: %w", assetID, name, err)
			}

			log.Infow("backtest complete",
				"asset", assetID,
				"strategy", name,
				"days", len(result.EquityCurve),
				"trades", len(result.Trades),
				"cagr", scorecard.CAGR,
				"maxDrawdown", scorecard.MaxDrawdown,
				"sharpe", scorecard.Sharpe,
			)
		}
	}

	summary.ElapsedMs = time.Since(startedAt).Milliseconds()
	return summary, nil
}

func (h ResearchHandler) sink() ResultSink {
	if h.Sink == nil {
		return DiscardSink{}
	}
	return h.Sink
}

// prepareAsset loads, normalizes and computes factors for one asset. The
// close column rides along on the table for strategies that need raw
// prices (mean reversion).
func (h ResearchHandler) prepareAsset(ctx context.Context, assetID string, in RunResearchInput) (*domain.FactorTable, domain.PriceSeries, error) {
	series, err := h.PriceSource.Load(ctx, assetID, in.Start, in.End)
	if err != nil {
		return nil, domain.PriceSeries{}, fmt.Errorf("loading prices: %w", err)
	}

	normalized, err := calendar.Normalize(series, in.Normalizer)
	if err != nil {
		return nil, domain.PriceSeries{}, err
	}

	table, err := factor.Compute(normalized)
	if err != nil {
		return nil, domain.PriceSeries{}, fmt.Errorf("computing factors: %w", err)
	}
	if err := table.AddColumn("close", normalized.Closes()); err != nil {
		return nil, domain.PriceSeries{}, err
	}

	return table, normalized, nil
}
