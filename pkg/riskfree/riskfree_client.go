// Package riskfree fetches US treasury par yields to use as the risk-free
// rate in scorecard ratios.
package riskfree

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://www.ustreasuryyieldcurve.com/api/v1"

// maturityKeys are the yield curve fields the snapshot endpoint exposes.
var maturityKeys = []string{
	"yield_1m",
	"yield_2m",
	"yield_3m",
	"yield_4m",
	"yield_6m",
	"yield_1y",
	"yield_2y",
	"yield_3y",
	"yield_5y",
	"yield_7y",
	"yield_10y",
	"yield_20y",
	"yield_30y",
}

// RateMap holds annualized rates keyed by maturity in months.
type RateMap struct {
	Rates map[int]float64
}

// Rate returns the rate at the requested maturity, clamping outside the
// curve and averaging the neighbors between known maturities.
func (m RateMap) Rate(monthsOut int) float64 {
	if v, ok := m.Rates[monthsOut]; ok {
		return v
	}
	if len(m.Rates) == 0 {
		return 0
	}

	keys := make([]int, 0, len(m.Rates))
	for k := range m.Rates {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	if monthsOut < keys[0] {
		return m.Rates[keys[0]]
	}
	if monthsOut > keys[len(keys)-1] {
		return m.Rates[keys[len(keys)-1]]
	}
	for i := 0; i < len(keys)-1; i++ {
		if monthsOut > keys[i] && monthsOut < keys[i+1] {
			return (m.Rates[keys[i]] + m.Rates[keys[i+1]]) / 2
		}
	}
	return m.Rates[keys[len(keys)-1]]
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// lazy per-date response cache
	cache map[string][]byte
}

func NewClient() *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		HTTPClient: http.DefaultClient,
		cache:      map[string][]byte{},
	}
}

// YieldCurve fetches the snapshot for the given date. Dates without
// published yields (weekends, holidays) walk backwards up to a week before
// giving up.
func (c *Client) YieldCurve(ctx context.Context, date time.Time) (*RateMap, error) {
	var lastErr error
	for i := 0; i < 7; i++ {
		curve, err := c.fetchDay(ctx, date.AddDate(0, 0, -i))
		if err != nil {
			lastErr = err
			continue
		}
		if len(curve.Rates) > 0 {
			return curve, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no published yields on or before %s", date.Format(time.DateOnly))
}

func (c *Client) fetchDay(ctx context.Context, date time.Time) (*RateMap, error) {
	body, err := c.getBytes(ctx, date)
	if err != nil {
		return nil, err
	}

	snapshots := []map[string]interface{}{}
	if err := json.Unmarshal(body, &snapshots); err != nil {
		return nil, fmt.Errorf("parsing yield curve snapshot: %w", err)
	}

	rates := map[int]float64{}
	for _, snapshot := range snapshots {
		for k, v := range snapshot {
			for _, field := range maturityKeys {
				if k != field || v == nil {
					continue
				}
				months, err := maturityMonths(k)
				if err != nil {
					return nil, err
				}
				rates[months] = v.(float64) / 100
			}
		}
	}

	return &RateMap{Rates: rates}, nil
}

func (c *Client) getBytes(ctx context.Context, date time.Time) ([]byte, error) {
	tStr := date.Format(time.DateOnly)
	if out, ok := c.cache[tStr]; ok {
		return out, nil
	}

	url := fmt.Sprintf("%s/yield_curve_snapshot?date=%s&offset=0", c.BaseURL, tStr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	response, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("received status code %d and failed to read body: %w", response.StatusCode, err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed with status code %d: %s", response.StatusCode, string(responseBytes))
	}

	if c.cache == nil {
		c.cache = map[string][]byte{}
	}
	c.cache[tStr] = responseBytes

	return responseBytes, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

// maturityMonths converts a snapshot key like "yield_3m" or "yield_10y"
// to months.
func maturityMonths(key string) (int, error) {
	cleaned := strings.Replace(key, "yield_", "", 1)
	unit := cleaned[len(cleaned)-1]
	months, err := strconv.Atoi(cleaned[:len(cleaned)-1])
	if err != nil {
		return 0, err
	}
	if unit == 'y' {
		months *= 12
	}
	return months, nil
}
