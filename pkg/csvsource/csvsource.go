// Package csvsource implements the upstream price source over per-asset
// CSV files: <dir>/<asset id>.csv with a date,open,high,low,close,volume
// header, one row per trading day.
package csvsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/gocarina/gocsv"
)

// DefaultCategories maps the dashboard's stock universe to calendar
// categories. Unknown assets fall back to business days.
var DefaultCategories = map[string]string{
	"KS200":  domain.CategoryIndex,
	"005930": domain.CategoryStock,
	"000660": domain.CategoryStock,
	"SOXL":   domain.CategoryEtf,
	"BTC":    domain.CategoryCrypto,
	"GC=F":   domain.CategoryCommodity,
	"SI=F":   domain.CategoryCommodity,
}

type Source struct {
	Dir        string
	Categories map[string]string
}

func New(dir string) *Source {
	return &Source{
		Dir:        dir,
		Categories: DefaultCategories,
	}
}

type csvBar struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// Load reads bars for assetID between start and end inclusive. Zero start
// or end leaves that side unbounded.
func (s *Source) Load(ctx context.Context, assetID string, start, end time.Time) (domain.PriceSeries, error) {
	f, err := os.Open(filepath.Join(s.Dir, assetID+".csv"))
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("opening prices for %s: %w", assetID, err)
	}
	defer f.Close()

	rows := []csvBar{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("parsing prices for %s: %w", assetID, err)
	}

	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(time.DateOnly, row.Date)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("bad date %q in prices for %s: %w", row.Date, assetID, err)
		}
		date = util.Midnight(date)
		if !start.IsZero() && date.Before(start) {
			continue
		}
		if !end.IsZero() && date.After(end) {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return domain.PriceSeries{
		AssetID:  assetID,
		Category: s.category(assetID),
		Bars:     bars,
	}, nil
}

func (s *Source) category(assetID string) string {
	categories := s.Categories
	if categories == nil {
		categories = DefaultCategories
	}
	if c, ok := categories[assetID]; ok {
		return c
	}
	return domain.CategoryUnknown
}
