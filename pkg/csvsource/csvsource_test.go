package csvsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quantdash/internal/domain"
	"quantdash/internal/util"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, assetID, contents string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, assetID+".csv"), []byte(contents), 0o644)
	require.NoError(t, err)
}

func Test_Load(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// rows deliberately out of order
	writeCSV(t, dir, "BTC", `date,open,high,low,close,volume
2024-01-03,102,108,101,107,3000
2024-01-01,100,105,99,104,1000
2024-01-02,101,106,100,105,2000
2024-01-04,103,109,102,108,4000
`)

	t.Run("parses and sorts by date", func(t *testing.T) {
		series, err := New(dir).Load(ctx, "BTC", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Equal(t, "BTC", series.AssetID)
		require.Equal(t, domain.CategoryCrypto, series.Category)
		require.Len(t, series.Bars, 4)

		require.Equal(t, util.NewDate(2024, 1, 1), series.Bars[0].Date)
		require.Equal(t, util.NewDate(2024, 1, 4), series.Bars[3].Date)
		require.Equal(t, 100.0, series.Bars[0].Open)
		require.Equal(t, 104.0, series.Bars[0].Close)
		require.Equal(t, 1000.0, series.Bars[0].Volume)
	})

	t.Run("date range is inclusive on both ends", func(t *testing.T) {
		series, err := New(dir).Load(ctx, "BTC", util.NewDate(2024, 1, 2), util.NewDate(2024, 1, 3))
		require.NoError(t, err)
		require.Len(t, series.Bars, 2)
		require.Equal(t, util.NewDate(2024, 1, 2), series.Bars[0].Date)
		require.Equal(t, util.NewDate(2024, 1, 3), series.Bars[1].Date)
	})

	t.Run("zero bounds leave the range open", func(t *testing.T) {
		series, err := New(dir).Load(ctx, "BTC", util.NewDate(2024, 1, 3), time.Time{})
		require.NoError(t, err)
		require.Len(t, series.Bars, 2)
	})

	t.Run("unknown asset id falls back to the unknown category", func(t *testing.T) {
		writeCSV(t, dir, "XYZ", "date,open,high,low,close,volume\n2024-01-01,1,1,1,1,1\n")
		series, err := New(dir).Load(ctx, "XYZ", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Equal(t, domain.CategoryUnknown, series.Category)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New(dir).Load(ctx, "NOPE", time.Time{}, time.Time{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "opening prices for NOPE")
	})

	t.Run("malformed date", func(t *testing.T) {
		writeCSV(t, dir, "BAD", "date,open,high,low,close,volume\n01/02/2024,1,1,1,1,1\n")
		_, err := New(dir).Load(ctx, "BAD", time.Time{}, time.Time{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "bad date")
	})
}
