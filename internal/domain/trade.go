package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const SideLong = "long"

// TradeRecord is one round trip (or still-open position) produced by the
// simulator. Exit fields and PnL are nil while the position is open; a
// position still held on the last simulated day is reported with a
// synthetic exit at the final close.
type TradeRecord struct {
	AssetID    string
	EntryDate  time.Time
	EntryPrice decimal.Decimal
	ExitDate   *time.Time
	ExitPrice  *decimal.Decimal
	Side       string
	Shares     decimal.Decimal
	Commission decimal.Decimal
	PnL        *decimal.Decimal
}

func (t TradeRecord) Closed() bool { return t.ExitDate != nil }
