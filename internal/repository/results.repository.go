// Package repository persists pipeline outputs. The research core only
// talks to the ResultSink interface; this file-backed implementation writes
// one JSON document per artifact so runs can be diffed and replayed.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"quantdash/internal/backtest"
	"quantdash/internal/calculator"
	"quantdash/internal/domain"
)

type resultsRepositoryHandler struct {
	Dir string
}

type ResultsRepository interface {
	StoreFactors(ctx context.Context, assetID string, table *domain.FactorTable) error
	StoreSignals(ctx context.Context, set domain.SignalSet) error
	StoreBacktest(ctx context.Context, result *backtest.Result, scorecard calculator.PerformanceScorecard) error
}

func NewResultsRepository(dir string) (ResultsRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results dir %s: %w", dir, err)
	}
	return resultsRepositoryHandler{Dir: dir}, nil
}

type factorDocument struct {
	AssetID string                `json:"assetId"`
	Version string                `json:"version"`
	Dates   []string              `json:"dates"`
	Columns map[string][]*float64 `json:"columns"`
}

func (h resultsRepositoryHandler) StoreFactors(ctx context.Context, assetID string, table *domain.FactorTable) error {
	doc := factorDocument{
		AssetID: assetID,
		Version: table.Version,
		Dates:   make([]string, len(table.Dates)),
		Columns: map[string][]*float64{},
	}
	for i, d := range table.Dates {
		doc.Dates[i] = d.Format(time.DateOnly)
	}
	for _, name := range table.ColumnNames() {
		col, _ := table.Column(name)
		doc.Columns[name] = encodeFloats(col)
	}

	return h.writeJSON(fmt.Sprintf("factors_%s.json", assetID), doc)
}

// encodeFloats maps warm-up NaNs to JSON nulls; json.Marshal rejects
// NaN outright.
func encodeFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = encodeFloat(v)
	}
	return out
}

func encodeFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

type signalDocument struct {
	Date     string   `json:"date"`
	Position int      `json:"position"`
	Score    *float64 `json:"score"`
	Action   string   `json:"action"`
}

type signalsDocument struct {
	AssetID    string           `json:"assetId"`
	StrategyID string           `json:"strategyId"`
	NumEntry   int              `json:"numEntry"`
	NumExit    int              `json:"numExit"`
	Signals    []signalDocument `json:"signals"`
}

func (h resultsRepositoryHandler) StoreSignals(ctx context.Context, set domain.SignalSet) error {
	doc := signalsDocument{
		AssetID:    set.AssetID,
		StrategyID: set.StrategyID,
		NumEntry:   set.NumEntry,
		NumExit:    set.NumExit,
		Signals:    make([]signalDocument, len(set.Signals)),
	}
	for i, s := range set.Signals {
		doc.Signals[i] = signalDocument{
			Date:     s.Date.Format(time.DateOnly),
			Position: s.Position,
			Score:    encodeFloat(s.Score),
			Action:   string(s.Action),
		}
	}

	return h.writeJSON(fmt.Sprintf("signals_%s_%s.json", set.AssetID, set.StrategyID), doc)
}

type equityPointDocument struct {
	Date     string  `json:"date"`
	Equity   string  `json:"equity"`
	Drawdown float64 `json:"drawdown"`
}

type tradeDocument struct {
	AssetID    string  `json:"assetId"`
	EntryDate  string  `json:"entryDate"`
	EntryPrice string  `json:"entryPrice"`
	ExitDate   *string `json:"exitDate,omitempty"`
	ExitPrice  *string `json:"exitPrice,omitempty"`
	Side       string  `json:"side"`
	Shares     string  `json:"shares"`
	Commission string  `json:"commission"`
	PnL        *string `json:"pnl,omitempty"`
}

type backtestDocument struct {
	RunID       string                          `json:"runId"`
	StrategyID  string                          `json:"strategyId"`
	AssetID     string                          `json:"assetId"`
	Scorecard   calculator.PerformanceScorecard `json:"scorecard"`
	EquityCurve []equityPointDocument           `json:"equityCurve"`
	Trades      []tradeDocument                 `json:"trades"`
}

func (h resultsRepositoryHandler) StoreBacktest(ctx context.Context, result *backtest.Result, scorecard calculator.PerformanceScorecard) error {
	doc := backtestDocument{
		RunID:       result.RunID.String(),
		StrategyID:  result.StrategyID,
		AssetID:     result.AssetID,
		Scorecard:   scorecard,
		EquityCurve: make([]equityPointDocument, len(result.EquityCurve)),
		Trades:      make([]tradeDocument, len(result.Trades)),
	}
	for i, p := range result.EquityCurve {
		doc.EquityCurve[i] = equityPointDocument{
			Date:     p.Date.Format(time.DateOnly),
			Equity:   p.Equity.String(),
			Drawdown: p.Drawdown,
		}
	}
	for i, tr := range result.Trades {
		td := tradeDocument{
			AssetID:    tr.AssetID,
			EntryDate:  tr.EntryDate.Format(time.DateOnly),
			EntryPrice: tr.EntryPrice.String(),
			Side:       tr.Side,
			Shares:     tr.Shares.String(),
			Commission: tr.Commission.String(),
		}
		if tr.ExitDate != nil {
			s := tr.ExitDate.Format(time.DateOnly)
			td.ExitDate = &s
		}
		if tr.ExitPrice != nil {
			s := tr.ExitPrice.String()
			td.ExitPrice = &s
		}
		if tr.PnL != nil {
			s := tr.PnL.String()
			td.PnL = &s
		}
		doc.Trades[i] = td
	}

	return h.writeJSON(fmt.Sprintf("backtest_%s_%s.json", result.AssetID, result.StrategyID), doc)
}

func (h resultsRepositoryHandler) writeJSON(name string, doc interface{}) error {
	bytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(h.Dir, name)
	if err := os.WriteFile(path, bytes, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
