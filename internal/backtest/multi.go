package backtest

import (
	"fmt"
	"sort"
	"time"

	"quantdash/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MultiAssetID marks results produced by RunMulti.
const MultiAssetID = "MULTI"

// RunMulti simulates each asset independently on an equal split of the
// initial cash, then combines: equity curves outer-joined by date (gaps
// forward- then back-filled) and summed, trade ledgers concatenated, and
// buy-and-hold curves summed the same way. Assets without signals are
// skipped; if nothing survives, the run fails.
func RunMulti(prices map[string]domain.PriceSeries, signals map[string]domain.SignalSet, strategyID string, cfg Config) (*Result, error) {
	assetIDs := make([]string, 0, len(prices))
	for aid := range prices {
		assetIDs = append(assetIDs, aid)
	}
	sort.Strings(assetIDs)

	if len(assetIDs) == 0 {
		return nil, fmt.Errorf("multi-asset backtest: no assets provided")
	}

	perAssetCfg := cfg
	perAssetCfg.InitialCash = cfg.InitialCash.Div(decimal.NewFromInt(int64(len(assetIDs))))

	results := []*Result{}
	for _, aid := range assetIDs {
		set, ok := signals[aid]
		if !ok || set.Empty() {
			continue
		}
		r, err := Run(prices[aid], set, perAssetCfg)
		if err != nil {
			return nil, fmt.Errorf("multi-asset backtest for %s: %w", aid, err)
		}
		if len(r.EquityCurve) == 0 {
			continue
		}
		results = append(results, r)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("multi-asset backtest: no asset produced a usable result")
	}

	combined := &Result{
		RunID:      uuid.New(),
		StrategyID: strategyID,
		AssetID:    MultiAssetID,
		Config:     cfg,
	}

	equityCurves := make([][]domain.EquityPoint, len(results))
	buyHoldCurves := [][]domain.EquityPoint{}
	for i, r := range results {
		combined.Trades = append(combined.Trades, r.Trades...)
		equityCurves[i] = r.EquityCurve
		if len(r.BuyHold) > 0 {
			buyHoldCurves = append(buyHoldCurves, r.BuyHold)
		}
	}

	combined.EquityCurve = sumCurves(equityCurves)
	fillDrawdowns(combined.EquityCurve)
	combined.BuyHold = sumCurves(buyHoldCurves)

	return combined, nil
}

// sumCurves outer-joins per-asset curves by calendar date and sums them.
// A curve missing a date contributes its previous value, or its first
// value for dates before it starts. Joining by date instead of index keeps
// mixed calendars (crypto vs equities) aligned.
func sumCurves(curves [][]domain.EquityPoint) []domain.EquityPoint {
	if len(curves) == 0 {
		return nil
	}

	dateSet := map[time.Time]struct{}{}
	for _, curve := range curves {
		for _, p := range curve {
			dateSet[p.Date] = struct{}{}
		}
	}
	allDates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		allDates = append(allDates, d)
	}
	sort.Slice(allDates, func(i, j int) bool { return allDates[i].Before(allDates[j]) })

	totals := make([]decimal.Decimal, len(allDates))
	for _, curve := range curves {
		byDate := make(map[time.Time]decimal.Decimal, len(curve))
		for _, p := range curve {
			byDate[p.Date] = p.Equity
		}

		last := curve[0].Equity // back-fill for dates before the curve starts
		for i, d := range allDates {
			if v, ok := byDate[d]; ok {
				last = v
			}
			totals[i] = totals[i].Add(last)
		}
	}

	out := make([]domain.EquityPoint, len(allDates))
	for i, d := range allDates {
		out[i] = domain.EquityPoint{Date: d, Equity: totals[i]}
	}
	return out
}
