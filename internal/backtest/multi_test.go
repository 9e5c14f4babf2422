package backtest

import (
	"testing"

	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/stretchr/testify/require"
)

func Test_RunMulti(t *testing.T) {
	jan1 := util.NewDate(2024, 1, 1)
	jan2 := util.NewDate(2024, 1, 2)

	t.Run("combines misaligned curves by date", func(t *testing.T) {
		// A trades Jan 1-3 and stays flat; B trades Jan 2-4 and rides a
		// doubling close. The combined curve must cover Jan 1-4, carrying
		// A's last value forward and B's first value backward.
		prices := map[string]domain.PriceSeries{
			"A": mkSeries("A", jan1, []float64{100, 100, 100}, []float64{100, 100, 100}),
			"B": mkSeries("B", jan2, []float64{10, 10, 10}, []float64{20, 20, 20}),
		}
		signals := map[string]domain.SignalSet{
			"A": mkSignals("A", jan1, []int{0, 0, 0}),
			"B": mkSignals("B", jan2, []int{1, 1, 1}),
		}

		res, err := RunMulti(prices, signals, "test", zeroCommissionConfig(1_000_000))
		require.NoError(t, err)
		require.Equal(t, MultiAssetID, res.AssetID)
		require.Equal(t, "test", res.StrategyID)

		require.Len(t, res.EquityCurve, 4)
		require.Equal(t, jan1, res.EquityCurve[0].Date)
		require.Equal(t, util.NewDate(2024, 1, 4), res.EquityCurve[3].Date)

		// 500,000 per asset; B buys 50,000 shares at Jan 3's open and marks
		// them at close 20 from then on
		require.InDelta(t, 1_000_000, equityFloat(res.EquityCurve[0]), 0.01)
		require.InDelta(t, 1_000_000, equityFloat(res.EquityCurve[1]), 0.01)
		require.InDelta(t, 1_500_000, equityFloat(res.EquityCurve[2]), 0.01)
		require.InDelta(t, 1_500_000, equityFloat(res.EquityCurve[3]), 0.01)

		// B's open position closes synthetically; A never trades
		require.Len(t, res.Trades, 1)
		require.Equal(t, "B", res.Trades[0].AssetID)

		require.Len(t, res.BuyHold, 4)
	})

	t.Run("assets without signals are skipped", func(t *testing.T) {
		prices := map[string]domain.PriceSeries{
			"A": mkSeries("A", jan1, []float64{100, 100}, []float64{100, 100}),
			"B": mkSeries("B", jan1, []float64{10, 10}, []float64{20, 20}),
		}
		signals := map[string]domain.SignalSet{
			"A": mkSignals("A", jan1, []int{0, 0}),
			"B": {AssetID: "B", StrategyID: "test"}, // no opinion
		}

		res, err := RunMulti(prices, signals, "test", zeroCommissionConfig(1_000_000))
		require.NoError(t, err)
		// cash is still split two ways even though only A runs
		require.InDelta(t, 500_000, equityFloat(res.EquityCurve[0]), 0.01)
		require.Empty(t, res.Trades)
	})

	t.Run("fails when every asset is skipped", func(t *testing.T) {
		prices := map[string]domain.PriceSeries{
			"A": mkSeries("A", jan1, []float64{100}, []float64{100}),
		}
		signals := map[string]domain.SignalSet{
			"A": {AssetID: "A", StrategyID: "test"},
		}

		_, err := RunMulti(prices, signals, "test", zeroCommissionConfig(1_000_000))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no asset produced a usable result")
	})

	t.Run("fails without assets", func(t *testing.T) {
		_, err := RunMulti(nil, nil, "test", zeroCommissionConfig(1_000_000))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no assets provided")
	})

	t.Run("drawdowns recomputed on the combined curve", func(t *testing.T) {
		prices := map[string]domain.PriceSeries{
			"A": mkSeries("A", jan1, []float64{100, 100, 100, 100}, []float64{100, 120, 90, 130}),
		}
		signals := map[string]domain.SignalSet{
			"A": mkSignals("A", jan1, []int{1, 1, 1, 1}),
		}

		res, err := RunMulti(prices, signals, "test", zeroCommissionConfig(1_000_000))
		require.NoError(t, err)
		require.InDelta(t, 90.0/120.0-1, res.EquityCurve[2].Drawdown, 1e-9)
	})
}
