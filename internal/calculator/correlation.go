package calculator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"quantdash/internal/domain"

	"github.com/montanaflynn/stats"
)

const defaultCorrelationWindow = 60

// CorrelationMatrix holds the pairwise Pearson correlation of daily close
// returns, plus the window of dates actually used.
type CorrelationMatrix struct {
	AssetIDs []string
	Matrix   [][]float64
	Start    time.Time
	End      time.Time
	Window   int
}

// ComputeCorrelation aligns close series by date (outer join), keeps the
// last window rows, converts to daily returns and correlates every pair.
// Rows where any asset lacks a return are dropped so every pair correlates
// over the same dates. Fewer than two assets with data, or fewer than two
// usable return rows, is an error. Undefined cells collapse to 0.
func ComputeCorrelation(seriesByAsset map[string]domain.PriceSeries, window int) (*CorrelationMatrix, error) {
	if window <= 0 {
		window = defaultCorrelationWindow
	}

	assetIDs := make([]string, 0, len(seriesByAsset))
	for aid, series := range seriesByAsset {
		if len(series.Bars) > 0 {
			assetIDs = append(assetIDs, aid)
		}
	}
	sort.Strings(assetIDs)
	if len(assetIDs) < 2 {
		return nil, fmt.Errorf("correlation needs at least 2 assets with price data, got %d", len(assetIDs))
	}

	dateSet := map[time.Time]struct{}{}
	closesByAsset := map[string]map[time.Time]float64{}
	for _, aid := range assetIDs {
		closes := map[time.Time]float64{}
		for _, b := range seriesByAsset[aid].Bars {
			closes[b.Date] = b.Close
			dateSet[b.Date] = struct{}{}
		}
		closesByAsset[aid] = closes
	}

	allDates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		allDates = append(allDates, d)
	}
	sort.Slice(allDates, func(i, j int) bool { return allDates[i].Before(allDates[j]) })
	if len(allDates) > window {
		allDates = allDates[len(allDates)-window:]
	}

	// per-asset daily returns over the window; NaN where a date or its
	// predecessor is missing
	returnsByAsset := map[string][]float64{}
	for _, aid := range assetIDs {
		closes := closesByAsset[aid]
		rets := make([]float64, len(allDates)-1)
		for i := 1; i < len(allDates); i++ {
			prev, okPrev := closes[allDates[i-1]]
			curr, okCurr := closes[allDates[i]]
			if !okPrev || !okCurr || prev == 0 {
				rets[i-1] = math.NaN()
				continue
			}
			rets[i-1] = curr/prev - 1
		}
		returnsByAsset[aid] = rets
	}

	// drop rows where any asset has no return
	usable := []int{}
	for i := 0; i < len(allDates)-1; i++ {
		ok := true
		for _, aid := range assetIDs {
			if math.IsNaN(returnsByAsset[aid][i]) {
				ok = false
				break
			}
		}
		if ok {
			usable = append(usable, i)
		}
	}
	if len(usable) < 2 {
		return nil, fmt.Errorf("insufficient overlapping data points for correlation")
	}

	matrix := make([][]float64, len(assetIDs))
	for i := range matrix {
		matrix[i] = make([]float64, len(assetIDs))
	}
	for i, a := range assetIDs {
		matrix[i][i] = 1
		for j := i + 1; j < len(assetIDs); j++ {
			b := assetIDs[j]
			x := make([]float64, len(usable))
			y := make([]float64, len(usable))
			for k, idx := range usable {
				x[k] = returnsByAsset[a][idx]
				y[k] = returnsByAsset[b][idx]
			}
			corr, err := stats.Correlation(x, y)
			if err != nil || math.IsNaN(corr) {
				corr = 0
			}
			matrix[i][j] = corr
			matrix[j][i] = corr
		}
	}

	return &CorrelationMatrix{
		AssetIDs: assetIDs,
		Matrix:   matrix,
		Start:    allDates[0],
		End:      allDates[len(allDates)-1],
		Window:   len(allDates),
	}, nil
}
