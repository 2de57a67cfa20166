package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FetchStockDay fetches the daily bar for one stock on one day via the
// Naver chart API. The bool reports exact-date confirmation: some sources
// silently substitute the nearest trading day for a holiday, so a bar is
// returned only when its reported date equals the probed day.
// ⭐ SSOT: 종목 단위 일봉 조회는 이 함수에서만
func (c *Client) FetchStockDay(ctx context.Context, day time.Time, code string) (*Bar, bool, error) {
	dayStr := day.Format("20060102")
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartBaseURL, code, dayStr, dayStr,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request failed: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Referer", "https://finance.naver.com/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response body failed: %w", err)
	}

	bars, err := parseChartResponse(string(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse response failed: %w", err)
	}

	for i := range bars {
		if bars[i].TradeDate.Format("20060102") == dayStr && bars[i].Close > 0 {
			return &bars[i], true, nil
		}
	}

	// no bar for exactly this day: holiday or not-yet-published
	return nil, false, nil
}

// parseChartResponse parses the Naver chart JSON response
func parseChartResponse(body string) ([]Bar, error) {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	// Try JSON parsing first
	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parseChartJSON(rawData), nil
	}

	// Fallback to regex parsing
	return parseChartRegex(body), nil
}

// parseChartJSON parses the JSON array format
func parseChartJSON(rawData [][]interface{}) []Bar {
	var bars []Bar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue // Skip header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		dateStr = strings.Trim(dateStr, "\"")
		tradeDate, err := time.Parse("20060102", dateStr)
		if err != nil {
			continue
		}

		bars = append(bars, Bar{
			TradeDate: tradeDate,
			Open:      toInt64(row[1]),
			High:      toInt64(row[2]),
			Low:       toInt64(row[3]),
			Close:     toInt64(row[4]),
			Volume:    toInt64(row[5]),
		})
	}
	return bars
}

var chartRowRe = regexp.MustCompile(`\["(\d{8})",\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\]`)

// parseChartRegex parses using regex (fallback)
func parseChartRegex(body string) []Bar {
	matches := chartRowRe.FindAllStringSubmatch(body, -1)

	var bars []Bar
	for _, match := range matches {
		if len(match) < 7 {
			continue
		}

		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseInt(match[2], 10, 64)
		high, _ := strconv.ParseInt(match[3], 10, 64)
		low, _ := strconv.ParseInt(match[4], 10, 64)
		closeP, _ := strconv.ParseInt(match[5], 10, 64)
		volume, _ := strconv.ParseInt(match[6], 10, 64)

		bars = append(bars, Bar{
			TradeDate: tradeDate,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
		})
	}
	return bars
}

// toInt64 converts various types to int64
func toInt64(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}
