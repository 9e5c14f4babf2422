package strategy

import (
	"math"

	"quantdash/internal/domain"
)

// Trend is the stateless moving-average crossover: long whenever the fast
// MA sits above the slow MA, flat otherwise.
type Trend struct {
	FastColumn string
	SlowColumn string
	Commission float64
}

func NewTrend() *Trend {
	return &Trend{
		FastColumn: "sma_20",
		SlowColumn: "sma_60",
		Commission: DefaultCommissionPct,
	}
}

func (s *Trend) ID() string             { return "trend" }
func (s *Trend) CommissionPct() float64 { return s.Commission }

func (s *Trend) RawSignals(table *domain.FactorTable) ([]RawSignal, error) {
	if len(table.MissingColumns(s.FastColumn, s.SlowColumn)) > 0 {
		return nil, nil
	}
	fast, _ := table.Column(s.FastColumn)
	slow, _ := table.Column(s.SlowColumn)

	out := make([]RawSignal, table.Len())
	for i := range out {
		pos := 0
		if fast[i] > slow[i] {
			pos = 1
		}
		// score: spread between the averages, relative to the slow one
		spread := (fast[i] - slow[i]) / slow[i]
		if math.IsNaN(spread) {
			spread = 0
		}
		out[i] = RawSignal{Position: pos, Score: math.Abs(spread)}
	}
	return out, nil
}
