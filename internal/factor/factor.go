// Package factor derives technical indicators from a normalized price
// series. Each factor is a pure function of prices up to and including the
// row's date; rows inside a lookback window hold NaN.
//
// Columns (15):
//
//	returns:    ret_1d, ret_5d, ret_20d, ret_63d
//	trend:      sma_20, sma_60, sma_120, ema_12, ema_26, macd
//	momentum:   roc, rsi_14
//	volatility: vol_20, atr_14
//	volume:     vol_zscore_20
package factor

import (
	"math"
	"time"

	"quantdash/internal/domain"

	"github.com/montanaflynn/stats"
)

const (
	rocPeriod          = 12
	rsiPeriod          = 14
	atrPeriod          = 14
	volWindow          = 20
	volumeWindow       = 20
	tradingDaysPerYear = 252
)

// Compute builds the full factor table from a normalized series. The table
// carries the current FactorVersion tag; factor definitions must not change
// under an existing tag.
func Compute(series domain.PriceSeries) (*domain.FactorTable, error) {
	n := len(series.Bars)
	dates := make([]time.Time, n)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range series.Bars {
		dates[i] = b.Date
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	table := domain.NewFactorTable(dates)

	columns := []struct {
		name   string
		values []float64
	}{
		{"ret_1d", pctChange(closes, 1)},
		{"ret_5d", pctChange(closes, 5)},
		{"ret_20d", pctChange(closes, 20)},
		{"ret_63d", pctChange(closes, 63)},
		{"sma_20", rollingMean(closes, 20)},
		{"sma_60", rollingMean(closes, 60)},
		{"sma_120", rollingMean(closes, 120)},
		{"ema_12", ema(closes, 12)},
		{"ema_26", ema(closes, 26)},
		{"macd", macd(closes)},
		{"roc", roc(closes, rocPeriod)},
		{"rsi_14", rsi(closes, rsiPeriod)},
		{"vol_20", annualizedVolatility(closes, volWindow)},
		{"atr_14", atr(highs, lows, closes, atrPeriod)},
		{"vol_zscore_20", volumeZScore(volumes, volumeWindow)},
	}
	for _, c := range columns {
		if err := table.AddColumn(c.name, c.values); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// pctChange is value[t]/value[t-period] - 1.
func pctChange(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period; i < len(values); i++ {
		out[i] = values[i]/values[i-period] - 1
	}
	return out
}

func rollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// ema is the zero-bias recursive form: seeded with the first value, then
// out[t] = alpha*value[t] + (1-alpha)*out[t-1] with alpha = 2/(span+1).
// Defined from the first row; there is no warm-up NaN.
func ema(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func macd(closes []float64) []float64 {
	fast := ema(closes, 12)
	slow := ema(closes, 26)
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = fast[i] - slow[i]
	}
	return out
}

// roc is the rate of change over period days, in percent.
func roc(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period; i < len(closes); i++ {
		out[i] = (closes[i]/closes[i-period] - 1) * 100
	}
	return out
}

// rsi uses Wilder smoothing (alpha = 1/period) over gains and losses,
// seeded with the first day-over-day move. Values appear once period
// observations have accumulated. Degenerate windows resolve explicitly:
// no gains and no losses → 50, no losses with gains → 100.
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) < 2 {
		return out
	}
	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}
		if i < period {
			continue
		}
		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// annualizedVolatility is the sample stdev of 1-day returns over the
// window, scaled by sqrt(252).
func annualizedVolatility(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	rets := pctChange(closes, 1)
	for i := window; i < len(closes); i++ {
		sd, err := stats.StandardDeviationSample(rets[i-window+1 : i+1])
		if err != nil {
			continue
		}
		out[i] = sd * math.Sqrt(tradingDaysPerYear)
	}
	return out
}

// atr Wilder-smooths the true range: max of high-low, |high-prevClose|,
// |low-prevClose|. The first row's true range is high-low.
func atr(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n == 0 {
		return out
	}
	alpha := 1.0 / float64(period)
	var smoothed float64
	for i := 0; i < n; i++ {
		tr := highs[i] - lows[i]
		if i > 0 {
			tr = math.Max(tr, math.Max(
				math.Abs(highs[i]-closes[i-1]),
				math.Abs(lows[i]-closes[i-1]),
			))
		}
		if i == 0 {
			smoothed = tr
		} else {
			smoothed = alpha*tr + (1-alpha)*smoothed
		}
		if i >= period-1 {
			out[i] = smoothed
		}
	}
	return out
}

// volumeZScore is (volume - rolling mean) / rolling sample stdev. A
// zero-stdev window would produce ±Inf; those rows stay NaN instead.
func volumeZScore(volumes []float64, window int) []float64 {
	out := nanSlice(len(volumes))
	for i := window - 1; i < len(volumes); i++ {
		win := volumes[i-window+1 : i+1]
		mean, err := stats.Mean(win)
		if err != nil {
			continue
		}
		sd, err := stats.StandardDeviationSample(win)
		if err != nil || sd == 0 || math.IsNaN(sd) {
			continue
		}
		out[i] = (volumes[i] - mean) / sd
	}
	return out
}
