// Package backtest replays a position-per-day signal series against daily
// prices. The execution rule is strict: a position decided with
// information through day t fills at day t+1's open, never day t's close.
package backtest

import (
	"time"

	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Config struct {
	InitialCash   decimal.Decimal
	CommissionPct decimal.Decimal
	// SlippagePct is reserved; nothing applies it yet.
	SlippagePct decimal.Decimal
	// AllowShort stays false until short signals exist.
	AllowShort bool
}

func DefaultConfig() Config {
	return Config{
		InitialCash:   decimal.NewFromInt(10_000_000),
		CommissionPct: decimal.NewFromFloat(0.001),
		SlippagePct:   decimal.Zero,
	}
}

// Result bundles everything one simulation produced. AssetID is "MULTI"
// for equal-weighted multi-asset runs.
type Result struct {
	RunID       uuid.UUID
	StrategyID  string
	AssetID     string
	Config      Config
	EquityCurve []domain.EquityPoint
	Trades      []domain.TradeRecord
	BuyHold     []domain.EquityPoint
}

type simRow struct {
	date  time.Time
	open  decimal.Decimal
	close decimal.Decimal
	pos   int
}

// Run simulates a single asset. Prices and signals are inner-joined on
// date; a join with no rows yields an empty result rather than an error.
// Cash and share accounting is decimal end to end.
func Run(prices domain.PriceSeries, signals domain.SignalSet, cfg Config) (*Result, error) {
	res := &Result{
		RunID:      uuid.New(),
		StrategyID: signals.StrategyID,
		AssetID:    prices.AssetID,
		Config:     cfg,
	}

	posByDate := make(map[time.Time]int, len(signals.Signals))
	for _, s := range signals.Signals {
		posByDate[s.Date] = s.Position
	}

	rows := make([]simRow, 0, len(prices.Bars))
	for _, b := range prices.Bars {
		pos, ok := posByDate[b.Date]
		if !ok {
			continue
		}
		rows = append(rows, simRow{
			date:  b.Date,
			open:  decimal.NewFromFloat(b.Open),
			close: decimal.NewFromFloat(b.Close),
			pos:   pos,
		})
	}
	if len(rows) == 0 {
		return res, nil
	}

	cash := cfg.InitialCash
	shares := decimal.Zero
	var entryDate time.Time
	entryPrice := decimal.Zero
	tradeCost := decimal.Zero

	for i, r := range rows {
		if i > 0 {
			prevPos := rows[i-1].pos

			if prevPos == 1 && shares.IsZero() {
				// flat -> long at today's open: all-in minus commission
				commission := cash.Mul(cfg.CommissionPct)
				investable := cash.Sub(commission)
				shares = investable.Div(r.open)
				entryDate = r.date
				entryPrice = r.open
				tradeCost = commission
				cash = decimal.Zero
			} else if prevPos == 0 && shares.IsPositive() {
				// long -> flat at today's open
				proceeds := shares.Mul(r.open)
				commission := proceeds.Mul(cfg.CommissionPct)
				cash = proceeds.Sub(commission)
				tradeCost = tradeCost.Add(commission)

				pnl := proceeds.Sub(shares.Mul(entryPrice)).Sub(tradeCost)
				res.Trades = append(res.Trades, domain.TradeRecord{
					AssetID:    prices.AssetID,
					EntryDate:  entryDate,
					EntryPrice: entryPrice,
					ExitDate:   util.TimePointer(r.date),
					ExitPrice:  util.DecimalPointer(r.open),
					Side:       domain.SideLong,
					Shares:     shares,
					Commission: tradeCost,
					PnL:        util.DecimalPointer(pnl),
				})
				shares = decimal.Zero
				tradeCost = decimal.Zero
			}
		}

		equity := cash.Add(shares.Mul(r.close))
		res.EquityCurve = append(res.EquityCurve, domain.EquityPoint{Date: r.date, Equity: equity})
	}

	// A position still open on the last day is closed at the final close
	// for reporting. No commission is charged on the synthetic exit.
	if shares.IsPositive() {
		last := rows[len(rows)-1]
		pnl := shares.Mul(last.close).Sub(shares.Mul(entryPrice)).Sub(tradeCost)
		res.Trades = append(res.Trades, domain.TradeRecord{
			AssetID:    prices.AssetID,
			EntryDate:  entryDate,
			EntryPrice: entryPrice,
			ExitDate:   util.TimePointer(last.date),
			ExitPrice:  util.DecimalPointer(last.close),
			Side:       domain.SideLong,
			Shares:     shares,
			Commission: tradeCost,
			PnL:        util.DecimalPointer(pnl),
		})
	}

	fillDrawdowns(res.EquityCurve)
	res.BuyHold = buyHoldCurve(rows, cfg)

	return res, nil
}

// fillDrawdowns sets Drawdown = equity/runningMax - 1 on every point.
func fillDrawdowns(curve []domain.EquityPoint) {
	runningMax := decimal.Zero
	for i := range curve {
		if curve[i].Equity.GreaterThan(runningMax) {
			runningMax = curve[i].Equity
		}
		if runningMax.IsPositive() {
			curve[i].Drawdown = curve[i].Equity.Div(runningMax).InexactFloat64() - 1
		}
	}
}

// buyHoldCurve benchmarks against buying the max shares at the first open
// (net of one commission) and holding to the end.
func buyHoldCurve(rows []simRow, cfg Config) []domain.EquityPoint {
	firstOpen := rows[0].open
	if !firstOpen.IsPositive() {
		return nil
	}
	shares := cfg.InitialCash.Sub(cfg.InitialCash.Mul(cfg.CommissionPct)).Div(firstOpen)

	curve := make([]domain.EquityPoint, len(rows))
	for i, r := range rows {
		curve[i] = domain.EquityPoint{Date: r.date, Equity: shares.Mul(r.close)}
	}
	return curve
}
