// Package strategy turns factor tables into daily position targets.
// Positions are +1 (long) or 0 (flat); strategies never go short. The
// shared wrapper labels each day's action and counts transitions.
package strategy

import (
	"fmt"

	"quantdash/internal/domain"
)

const DefaultCommissionPct = 0.001

// Strategy computes a raw per-day position target from a factor table.
// Implementations own whatever sequential state their rules need, so they
// are evaluated row by row rather than as vectorized formulas.
type Strategy interface {
	ID() string
	// CommissionPct is carried as configuration only; the simulator is
	// the single place commission gets applied.
	CommissionPct() float64
	RawSignals(table *domain.FactorTable) ([]RawSignal, error)
}

type RawSignal struct {
	Position int
	Score    float64
}

// GenerateSignals runs the strategy and labels each day's action by
// comparing position(t) with position(t-1); the day before the series
// counts as flat. A transition between two different non-zero positions is
// an entry — unreachable while everything is long-only, but the label
// semantics are fixed. Strategies missing their required factor columns
// return an empty set, which callers treat as "no opinion".
func GenerateSignals(s Strategy, table *domain.FactorTable, assetID string) (domain.SignalSet, error) {
	raw, err := s.RawSignals(table)
	if err != nil {
		return domain.SignalSet{}, fmt.Errorf("strategy %s: %w", s.ID(), err)
	}

	set := domain.SignalSet{
		AssetID:    assetID,
		StrategyID: s.ID(),
	}
	if len(raw) == 0 {
		return set, nil
	}
	if len(raw) != table.Len() {
		return domain.SignalSet{}, fmt.Errorf(
			"strategy %s returned %d positions for %d factor rows", s.ID(), len(raw), table.Len())
	}

	prev := 0
	for i, r := range raw {
		action := domain.ActionHold
		switch {
		case prev == 0 && r.Position != 0:
			action = domain.ActionEntry
		case prev != 0 && r.Position == 0:
			action = domain.ActionExit
		case prev != 0 && r.Position != 0 && prev != r.Position:
			action = domain.ActionEntry
		}
		switch action {
		case domain.ActionEntry:
			set.NumEntry++
		case domain.ActionExit:
			set.NumExit++
		default:
			set.NumHold++
		}
		set.Signals = append(set.Signals, domain.Signal{
			Date:     table.Dates[i],
			Position: r.Position,
			Score:    r.Score,
			Action:   action,
		})
		prev = r.Position
	}

	return set, nil
}
