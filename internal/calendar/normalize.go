package calendar

import (
	"fmt"
	"math"
	"time"

	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/montanaflynn/stats"
)

// DataQualityError marks price input that cannot be normalized: empty
// series, unordered or duplicated bars, or too many gap-filled days.
// Callers running several assets should skip the asset and continue.
type DataQualityError struct {
	AssetID string
	Err     error
}

func (e DataQualityError) Error() string {
	return fmt.Sprintf("%s: %s", e.AssetID, e.Err)
}

func (e DataQualityError) Unwrap() error { return e.Err }

type Options struct {
	// MissingThreshold is the max tolerated fraction of gap-filled rows.
	MissingThreshold float64
	// OutlierZ flags rows whose daily return z-score exceeds it.
	OutlierZ float64
}

func DefaultOptions() Options {
	return Options{
		MissingThreshold: 0.05,
		OutlierZ:         4,
	}
}

// Normalize aligns raw bars onto the asset's expected trading calendar:
// every calendar day for crypto, business days for everything else.
// Missing days get the previous day's OHLC with volume 0 and IsFilled set.
// The result always holds exactly one bar per expected day.
func Normalize(series domain.PriceSeries, opts Options) (domain.PriceSeries, error) {
	if len(series.Bars) == 0 {
		return domain.PriceSeries{}, DataQualityError{series.AssetID, fmt.Errorf("no price data")}
	}

	byDate := make(map[time.Time]domain.PriceBar, len(series.Bars))
	for i, bar := range series.Bars {
		bar.Date = util.Midnight(bar.Date)
		if i > 0 && !bar.Date.After(util.Midnight(series.Bars[i-1].Date)) {
			return domain.PriceSeries{}, DataQualityError{
				series.AssetID,
				fmt.Errorf("bars out of order or duplicated at %s", bar.Date.Format(time.DateOnly)),
			}
		}
		byDate[bar.Date] = bar
	}

	start := util.Midnight(series.Bars[0].Date)
	end := util.Midnight(series.Bars[len(series.Bars)-1].Date)
	expected := expectedDates(start, end, series.Category)

	aligned := make([]domain.PriceBar, 0, len(expected))
	filled := 0
	var prev domain.PriceBar
	for _, d := range expected {
		bar, ok := byDate[d]
		if !ok {
			bar = domain.PriceBar{
				Date:     d,
				Open:     prev.Open,
				High:     prev.High,
				Low:      prev.Low,
				Close:    prev.Close,
				Volume:   0,
				IsFilled: true,
			}
			filled++
		}
		prev = bar
		aligned = append(aligned, bar)
	}

	ratio := float64(filled) / float64(len(aligned))
	if ratio > opts.MissingThreshold {
		return domain.PriceSeries{}, DataQualityError{
			series.AssetID,
			fmt.Errorf("gap-filled ratio %.1f%% (%d/%d rows) exceeds threshold %.1f%%",
				ratio*100, filled, len(aligned), opts.MissingThreshold*100),
		}
	}

	flagOutliers(aligned, opts.OutlierZ)

	return domain.PriceSeries{
		AssetID:  series.AssetID,
		Category: series.Category,
		Bars:     aligned,
	}, nil
}

// FilledCount reports how many bars were synthesized by alignment.
func FilledCount(series domain.PriceSeries) int {
	n := 0
	for _, b := range series.Bars {
		if b.IsFilled {
			n++
		}
	}
	return n
}

func expectedDates(start, end time.Time, category string) []time.Time {
	everyDay := category == domain.CategoryCrypto
	dates := []time.Time{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if everyDay || util.IsBusinessDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// flagOutliers marks bars whose day-over-day close return sits more than
// zThreshold sample standard deviations from the full-series mean. The
// first row is never flagged and a zero-variance series flags nothing.
func flagOutliers(bars []domain.PriceBar, zThreshold float64) {
	if len(bars) < 2 {
		return
	}

	rets := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		rets[i-1] = bars[i].Close/bars[i-1].Close - 1
	}

	mean, err := stats.Mean(rets)
	if err != nil {
		return
	}
	std, err := stats.StandardDeviationSample(rets)
	if err != nil || std == 0 || math.IsNaN(std) {
		return
	}

	for i := 1; i < len(bars); i++ {
		z := math.Abs((rets[i-1] - mean) / std)
		if z > zThreshold {
			bars[i].IsOutlier = true
		}
	}
}
