// Package calculator reduces equity curves and trade ledgers to scorecards.
// Every ratio uses zero-safe division; no NaN or Inf ever reaches a
// scorecard field.
package calculator

import (
	"math"

	"quantdash/internal/backtest"
	"quantdash/internal/util"

	"github.com/montanaflynn/stats"
)

const tradingDaysPerYear = 252

// PerformanceScorecard is one snapshot per run, derived once from the full
// equity curve and trade ledger. The buy-and-hold fields are nil when the
// benchmark curve is too short to score.
type PerformanceScorecard struct {
	TotalReturn float64 `json:"totalReturn"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"maxDrawdown"`
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	Calmar      float64 `json:"calmar"`
	WinRate     float64 `json:"winRate"`
	NumTrades   int     `json:"numTrades"`
	AvgTradePnL float64 `json:"avgTradePnl"`
	Turnover    float64 `json:"turnover"`

	BuyHoldTotalReturn *float64 `json:"buyHoldTotalReturn,omitempty"`
	BuyHoldCAGR        *float64 `json:"buyHoldCagr,omitempty"`
	ExcessReturn       *float64 `json:"excessReturn,omitempty"`
}

// ComputeMetrics scores a backtest result. Curves with fewer than two
// points return the zero scorecard. Trade statistics cover closed trades
// only; turnover is closed trades per year of elapsed trading days.
func ComputeMetrics(result *backtest.Result, riskFreeRate float64) PerformanceScorecard {
	eq := result.EquityCurve
	if len(eq) < 2 {
		return PerformanceScorecard{}
	}

	equities := make([]float64, len(eq))
	for i, p := range eq {
		equities[i] = p.Equity.InexactFloat64()
	}
	years := float64(len(equities)) / tradingDaysPerYear

	totalReturn := 0.0
	if equities[0] != 0 {
		totalReturn = equities[len(equities)-1]/equities[0] - 1
	}
	cagr := annualizedGrowth(equities[0], equities[len(equities)-1], years)

	maxDrawdown := 0.0
	for _, p := range eq {
		if p.Drawdown < maxDrawdown {
			maxDrawdown = p.Drawdown
		}
	}

	dailyReturns := make([]float64, len(equities)-1)
	for i := 1; i < len(equities); i++ {
		if equities[i-1] != 0 {
			dailyReturns[i-1] = equities[i]/equities[i-1] - 1
		}
	}
	volatility := sanitize(sampleStdev(dailyReturns) * math.Sqrt(tradingDaysPerYear))

	dailyRiskFree := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(dailyReturns))
	downside := []float64{}
	for i, r := range dailyReturns {
		excess[i] = r - dailyRiskFree
		if excess[i] < 0 {
			downside = append(downside, excess[i])
		}
	}

	meanExcess, err := stats.Mean(excess)
	if err != nil {
		meanExcess = 0
	}
	annualizedMeanExcess := meanExcess * math.Sqrt(tradingDaysPerYear)
	sharpe := safeDivide(annualizedMeanExcess, sampleStdev(excess))

	downsideStdev := 0.0
	if len(downside) > 1 {
		downsideStdev = sampleStdev(downside)
	}
	sortino := safeDivide(annualizedMeanExcess, downsideStdev)

	calmar := safeDivide(cagr, math.Abs(maxDrawdown))

	numTrades := 0
	wins := 0
	pnlSum := 0.0
	for _, t := range result.Trades {
		if !t.Closed() || t.PnL == nil {
			continue
		}
		numTrades++
		pnl := t.PnL.InexactFloat64()
		pnlSum += pnl
		if pnl > 0 {
			wins++
		}
	}
	winRate := 0.0
	avgTradePnL := 0.0
	if numTrades > 0 {
		winRate = float64(wins) / float64(numTrades)
		avgTradePnL = pnlSum / float64(numTrades)
	}
	turnover := 0.0
	if years > 0 {
		turnover = float64(numTrades) / years
	}

	scorecard := PerformanceScorecard{
		TotalReturn: sanitize(totalReturn),
		CAGR:        sanitize(cagr),
		MaxDrawdown: sanitize(maxDrawdown),
		Volatility:  volatility,
		Sharpe:      sanitize(sharpe),
		Sortino:     sanitize(sortino),
		Calmar:      sanitize(calmar),
		WinRate:     winRate,
		NumTrades:   numTrades,
		AvgTradePnL: sanitize(avgTradePnL),
		Turnover:    sanitize(turnover),
	}

	if len(result.BuyHold) >= 2 {
		bhStart := result.BuyHold[0].Equity.InexactFloat64()
		bhEnd := result.BuyHold[len(result.BuyHold)-1].Equity.InexactFloat64()
		bhTotalReturn := 0.0
		if bhStart != 0 {
			bhTotalReturn = bhEnd/bhStart - 1
		}
		bhCAGR := annualizedGrowth(bhStart, bhEnd, years)
		excessReturn := scorecard.CAGR - sanitize(bhCAGR)

		scorecard.BuyHoldTotalReturn = util.FloatPointer(sanitize(bhTotalReturn))
		scorecard.BuyHoldCAGR = util.FloatPointer(sanitize(bhCAGR))
		scorecard.ExcessReturn = util.FloatPointer(sanitize(excessReturn))
	}

	return scorecard
}

// annualizedGrowth is CAGR: 0 when the span or starting value can't
// support the exponent.
func annualizedGrowth(startValue, endValue, years float64) float64 {
	if startValue <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(endValue/startValue, 1/years) - 1
}

// sampleStdev wraps the stats call; degenerate inputs yield NaN, which
// callers route through sanitize or safeDivide.
func sampleStdev(values []float64) float64 {
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return math.NaN()
	}
	return sd
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 || math.IsNaN(denominator) {
		return 0
	}
	return numerator / denominator
}

// sanitize keeps scorecards finite: NaN and ±Inf collapse to 0.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
