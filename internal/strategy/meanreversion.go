package strategy

import (
	"math"

	"quantdash/internal/domain"

	"github.com/montanaflynn/stats"
)

// reversionState tracks where the armed/long cycle stands. Arming must
// survive across days until the recovery happens, so the state is an
// explicit enum rather than a boolean threaded through the loop.
type reversionState int

const (
	flatUnarmed reversionState = iota
	flatArmed
	longPosition
)

// MeanReversion trades the z-score of close against its own rolling
// mean/std. Dipping to EntryZ arms the strategy; recovering back above
// EntryZ while armed opens the long; reaching ExitZ (the mean) or
// breaching StopZ closes it.
type MeanReversion struct {
	Lookback   int
	EntryZ     float64
	ExitZ      float64
	StopZ      float64
	Commission float64
}

func NewMeanReversion() *MeanReversion {
	return &MeanReversion{
		Lookback:   20,
		EntryZ:     -2.0,
		ExitZ:      0.0,
		StopZ:      -3.0,
		Commission: DefaultCommissionPct,
	}
}

func (s *MeanReversion) ID() string             { return "mean_reversion" }
func (s *MeanReversion) CommissionPct() float64 { return s.Commission }

func (s *MeanReversion) RawSignals(table *domain.FactorTable) ([]RawSignal, error) {
	closes, ok := table.Column("close")
	if !ok {
		return nil, nil
	}

	zs := rollingZScore(closes, s.Lookback)

	out := make([]RawSignal, table.Len())
	state := flatUnarmed
	for i := range out {
		z := zs[i]
		switch state {
		case flatUnarmed:
			if z <= s.EntryZ {
				state = flatArmed
			}
		case flatArmed:
			if z > s.EntryZ {
				state = longPosition
			}
		case longPosition:
			if z >= s.ExitZ || z <= s.StopZ {
				state = flatUnarmed
			}
		}
		pos := 0
		if state == longPosition {
			pos = 1
		}
		out[i] = RawSignal{Position: pos, Score: math.Abs(z)}
	}
	return out, nil
}

// rollingZScore is (value - rolling mean) / rolling sample std over the
// window. Warm-up and zero-variance rows resolve to 0, matching the
// strategy's "no distance from the mean" reading.
func rollingZScore(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		mean, err := stats.Mean(win)
		if err != nil {
			continue
		}
		sd, err := stats.StandardDeviationSample(win)
		if err != nil || sd == 0 || math.IsNaN(sd) {
			continue
		}
		out[i] = (values[i] - mean) / sd
	}
	return out
}
