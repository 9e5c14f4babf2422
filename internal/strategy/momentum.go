package strategy

import (
	"math"

	"quantdash/internal/domain"
)

// Momentum goes long when the 63-day return is strong and 20-day
// volatility is contained, and steps out when either condition breaks.
// Entry: ret_63d > RetThreshold AND vol_20 < VolCap.
// Exit: ret_63d < ExitThreshold OR vol_20 >= VolCap.
type Momentum struct {
	RetThreshold  float64
	ExitThreshold float64
	VolCap        float64
	Commission    float64
}

func NewMomentum() *Momentum {
	return &Momentum{
		RetThreshold:  0.05,
		ExitThreshold: 0.0,
		VolCap:        0.40,
		Commission:    DefaultCommissionPct,
	}
}

func (s *Momentum) ID() string             { return "momentum" }
func (s *Momentum) CommissionPct() float64 { return s.Commission }

func (s *Momentum) RawSignals(table *domain.FactorTable) ([]RawSignal, error) {
	if len(table.MissingColumns("ret_63d", "vol_20")) > 0 {
		return nil, nil
	}
	ret, _ := table.Column("ret_63d")
	vol, _ := table.Column("vol_20")

	out := make([]RawSignal, table.Len())
	inPosition := false
	for i := range out {
		// NaN factor values compare false on both sides, so warm-up rows
		// neither enter nor force an exit.
		if !inPosition {
			if ret[i] > s.RetThreshold && vol[i] < s.VolCap {
				inPosition = true
			}
		} else if ret[i] < s.ExitThreshold || vol[i] >= s.VolCap {
			inPosition = false
		}
		pos := 0
		if inPosition {
			pos = 1
		}
		out[i] = RawSignal{Position: pos, Score: math.Abs(ret[i])}
	}
	return out, nil
}
