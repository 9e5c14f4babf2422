package domain

import "time"

type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
	ActionHold  Action = "hold"
)

// Signal is one day's position target for an (asset, strategy) pair.
// Position is +1 (long) or 0 (flat); short positions are not generated.
// Action is derived by comparing Position against the previous day's.
type Signal struct {
	Date     time.Time
	Position int
	Score    float64
	Action   Action
}

// SignalSet is the full signal series for one (asset, strategy) run.
// An empty set means the strategy had no opinion (e.g. required factor
// columns were missing) and is not an error.
type SignalSet struct {
	AssetID    string
	StrategyID string
	Signals    []Signal
	NumEntry   int
	NumExit    int
	NumHold    int
}

func (s SignalSet) Empty() bool { return len(s.Signals) == 0 }
