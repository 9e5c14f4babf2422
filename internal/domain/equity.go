package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one day of portfolio value. Equity is cash plus
// mark-to-market holdings; Drawdown is equity/runningMax - 1 and is
// never positive.
type EquityPoint struct {
	Date     time.Time
	Equity   decimal.Decimal
	Drawdown float64
}
