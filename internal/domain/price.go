package domain

import "time"

// Asset categories decide the expected trading calendar. Crypto trades
// every calendar day; everything else is business days.
const (
	CategoryStock     = "stock"
	CategoryEtf       = "etf"
	CategoryIndex     = "index"
	CategoryCommodity = "commodity"
	CategoryCrypto    = "crypto"
	CategoryUnknown   = "unknown"
)

// PriceBar is one trading day of OHLCV for a single asset. IsFilled marks
// bars synthesized by calendar alignment; IsOutlier marks extreme
// day-over-day return moves and is informational only.
type PriceBar struct {
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	IsFilled  bool
	IsOutlier bool
}

// PriceSeries is an ordered run of daily bars for one asset. After
// normalization it holds exactly one bar per expected trading day.
type PriceSeries struct {
	AssetID  string
	Category string
	Bars     []PriceBar
}

func (s PriceSeries) Len() int { return len(s.Bars) }

func (s PriceSeries) Start() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Date
}

func (s PriceSeries) End() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// Closes returns the close column as a flat slice, in date order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}
