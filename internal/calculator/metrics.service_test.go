package calculator

import (
	"math"
	"testing"
	"time"

	"quantdash/internal/backtest"
	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func curveFromEquities(start time.Time, equities []float64) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(equities))
	day := start
	runningMax := 0.0
	for i, e := range equities {
		if e > runningMax {
			runningMax = e
		}
		dd := 0.0
		if runningMax > 0 {
			dd = e/runningMax - 1
		}
		out[i] = domain.EquityPoint{Date: day, Equity: decimal.NewFromFloat(e), Drawdown: dd}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func closedTrade(pnl float64) domain.TradeRecord {
	exitDate := util.NewDate(2024, 2, 1)
	exitPrice := decimal.NewFromInt(120)
	p := decimal.NewFromFloat(pnl)
	return domain.TradeRecord{
		AssetID:    "TEST",
		EntryDate:  util.NewDate(2024, 1, 2),
		EntryPrice: decimal.NewFromInt(100),
		ExitDate:   &exitDate,
		ExitPrice:  &exitPrice,
		Side:       domain.SideLong,
		Shares:     decimal.NewFromInt(10),
		PnL:        &p,
	}
}

func requireFinite(t *testing.T, sc PerformanceScorecard) {
	t.Helper()
	for _, v := range []float64{
		sc.TotalReturn, sc.CAGR, sc.MaxDrawdown, sc.Volatility,
		sc.Sharpe, sc.Sortino, sc.Calmar, sc.WinRate, sc.AvgTradePnL, sc.Turnover,
	} {
		require.False(t, math.IsNaN(v))
		require.False(t, math.IsInf(v, 0))
	}
}

func Test_ComputeMetrics_degenerateCurves(t *testing.T) {
	start := util.NewDate(2024, 1, 1)

	t.Run("curves shorter than two points score zero", func(t *testing.T) {
		for _, equities := range [][]float64{nil, {1_000_000}} {
			res := &backtest.Result{EquityCurve: curveFromEquities(start, equities)}
			sc := ComputeMetrics(res, 0)
			require.Equal(t, PerformanceScorecard{}, sc)
		}
	})

	t.Run("two flat points stay finite everywhere", func(t *testing.T) {
		res := &backtest.Result{EquityCurve: curveFromEquities(start, []float64{1_000_000, 1_000_000})}
		sc := ComputeMetrics(res, 0.02)
		requireFinite(t, sc)
		require.Zero(t, sc.TotalReturn)
		require.Zero(t, sc.Volatility)
		require.Zero(t, sc.Sharpe)
		require.Zero(t, sc.Sortino)
	})

	t.Run("all-flat long curve stays finite", func(t *testing.T) {
		equities := make([]float64, 300)
		for i := range equities {
			equities[i] = 1_000_000
		}
		res := &backtest.Result{EquityCurve: curveFromEquities(start, equities)}
		sc := ComputeMetrics(res, 0)
		requireFinite(t, sc)
		require.Zero(t, sc.MaxDrawdown)
		require.Zero(t, sc.Calmar)
	})
}

func Test_ComputeMetrics_knownValues(t *testing.T) {
	start := util.NewDate(2024, 1, 1)

	// 252 points doubling start to end: exactly one year, so CAGR equals
	// the total return
	equities := make([]float64, 252)
	for i := range equities {
		equities[i] = 1_000_000 + 1_000_000*float64(i)/251
	}
	res := &backtest.Result{EquityCurve: curveFromEquities(start, equities)}

	sc := ComputeMetrics(res, 0)
	require.InDelta(t, 1.0, sc.TotalReturn, 1e-9)
	require.InDelta(t, 1.0, sc.CAGR, 1e-9)
	require.Zero(t, sc.MaxDrawdown)
	require.Greater(t, sc.Sharpe, 0.0)
	require.Positive(t, sc.Volatility)
}

func Test_ComputeMetrics_drawdownAndCalmar(t *testing.T) {
	start := util.NewDate(2024, 1, 1)
	equities := make([]float64, 252)
	for i := range equities {
		equities[i] = 1_000_000 + 2_000*float64(i)
	}
	equities[100] = 800_000 // one deep dip against a rising curve
	res := &backtest.Result{EquityCurve: curveFromEquities(start, equities)}

	sc := ComputeMetrics(res, 0)
	wantDD := 800_000.0/(1_000_000+2_000*99) - 1
	require.InDelta(t, wantDD, sc.MaxDrawdown, 1e-9)
	require.InDelta(t, sc.CAGR/math.Abs(wantDD), sc.Calmar, 1e-9)
}

func Test_ComputeMetrics_tradeStats(t *testing.T) {
	start := util.NewDate(2024, 1, 1)
	equities := make([]float64, 252)
	for i := range equities {
		equities[i] = 1_000_000 + 100*float64(i)
	}

	open := domain.TradeRecord{
		AssetID:    "TEST",
		EntryDate:  util.NewDate(2024, 6, 3),
		EntryPrice: decimal.NewFromInt(100),
		Side:       domain.SideLong,
		Shares:     decimal.NewFromInt(10),
	}
	res := &backtest.Result{
		EquityCurve: curveFromEquities(start, equities),
		Trades: []domain.TradeRecord{
			closedTrade(100), closedTrade(50), closedTrade(-30), open,
		},
	}

	sc := ComputeMetrics(res, 0)
	// the open trade is excluded from every trade statistic
	require.Equal(t, 3, sc.NumTrades)
	require.InDelta(t, 2.0/3.0, sc.WinRate, 1e-9)
	require.InDelta(t, 40.0, sc.AvgTradePnL, 1e-9)
	require.InDelta(t, 3.0, sc.Turnover, 1e-9) // exactly one year of points
}

func Test_ComputeMetrics_sortino(t *testing.T) {
	start := util.NewDate(2024, 1, 1)

	t.Run("a single down day cannot price downside risk", func(t *testing.T) {
		res := &backtest.Result{
			EquityCurve: curveFromEquities(start, []float64{100, 110, 105, 120}),
		}
		sc := ComputeMetrics(res, 0)
		require.Zero(t, sc.Sortino)
		requireFinite(t, sc)
	})

	t.Run("two down days make it finite and nonzero", func(t *testing.T) {
		res := &backtest.Result{
			EquityCurve: curveFromEquities(start, []float64{100, 110, 105, 120, 112, 130}),
		}
		sc := ComputeMetrics(res, 0)
		require.NotZero(t, sc.Sortino)
		requireFinite(t, sc)
	})
}

func Test_ComputeMetrics_buyHold(t *testing.T) {
	start := util.NewDate(2024, 1, 1)
	equities := make([]float64, 252)
	benchmark := make([]float64, 252)
	for i := range equities {
		equities[i] = 1_000_000 + 1_000_000*float64(i)/251
		benchmark[i] = 1_000_000 + 500_000*float64(i)/251
	}

	t.Run("without a benchmark the comparison fields stay nil", func(t *testing.T) {
		res := &backtest.Result{EquityCurve: curveFromEquities(start, equities)}
		sc := ComputeMetrics(res, 0)
		require.Nil(t, sc.BuyHoldTotalReturn)
		require.Nil(t, sc.BuyHoldCAGR)
		require.Nil(t, sc.ExcessReturn)
	})

	t.Run("with a benchmark the excess return is the CAGR gap", func(t *testing.T) {
		res := &backtest.Result{
			EquityCurve: curveFromEquities(start, equities),
			BuyHold:     curveFromEquities(start, benchmark),
		}
		sc := ComputeMetrics(res, 0)
		require.NotNil(t, sc.BuyHoldTotalReturn)
		require.InDelta(t, 0.5, *sc.BuyHoldTotalReturn, 1e-9)
		require.NotNil(t, sc.BuyHoldCAGR)
		require.InDelta(t, 0.5, *sc.BuyHoldCAGR, 1e-9)
		require.NotNil(t, sc.ExcessReturn)
		require.InDelta(t, sc.CAGR-*sc.BuyHoldCAGR, *sc.ExcessReturn, 1e-9)
	})
}
