package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// krxDayQuoteResponse represents the KRX all-stock daily quote response
type krxDayQuoteResponse struct {
	OutBlock1 []krxDayQuoteRow `json:"OutBlock_1"`
}

// krxDayQuoteRow represents a row in the KRX daily quote response
type krxDayQuoteRow struct {
	ISU_SRT_CD string `json:"ISU_SRT_CD"` // 종목코드 (단축)
	TDD_OPNPRC string `json:"TDD_OPNPRC"` // 시가
	TDD_HGPRC  string `json:"TDD_HGPRC"`  // 고가
	TDD_LWPRC  string `json:"TDD_LWPRC"`  // 저가
	TDD_CLSPRC string `json:"TDD_CLSPRC"` // 종가
	ACC_TRDVOL string `json:"ACC_TRDVOL"` // 거래량
}

// FetchMarketDay fetches daily bars for the full tradable universe
// (KOSPI+KOSDAQ merged) for one day, keyed by 6-digit stock code.
// An empty map means the bulk source had nothing for that day.
// ⭐ SSOT: KRX 전종목 일봉 조회는 이 함수에서만
func (c *Client) FetchMarketDay(ctx context.Context, day time.Time) (map[string]Bar, error) {
	bars := make(map[string]Bar)

	for _, mktID := range []string{"STK", "KSQ"} {
		rows, err := c.fetchMarketDayOne(ctx, day, mktID)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"market": mktID,
				"day":    day.Format("2006-01-02"),
			}).Warn("KRX bulk fetch failed for market")
			continue
		}

		for _, row := range rows {
			code := NormalizeCode(row.ISU_SRT_CD)
			if code == "" {
				continue
			}
			// 휴장일에는 "-" 값이 내려온다. 종가 0은 데이터 없음으로 취급.
			bar := Bar{
				TradeDate: day,
				Open:      parseNum(row.TDD_OPNPRC),
				High:      parseNum(row.TDD_HGPRC),
				Low:       parseNum(row.TDD_LWPRC),
				Close:     parseNum(row.TDD_CLSPRC),
				Volume:    parseNum(row.ACC_TRDVOL),
			}
			if bar.Close <= 0 {
				continue
			}
			// first occurrence wins on duplicate codes across markets
			if _, exists := bars[code]; !exists {
				bars[code] = bar
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"day":   day.Format("20060102"),
		"count": len(bars),
	}).Debug("Fetched market day bars")

	return bars, nil
}

// fetchMarketDayOne fetches one market's all-stock daily quotes from KRX
func (c *Client) fetchMarketDayOne(ctx context.Context, day time.Time, mktID string) ([]krxDayQuoteRow, error) {
	krxURL := c.krxBaseURL + "/comm/bldAttendant/getJsonData.cmd"

	formData := url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01501"},
		"locale":      {"ko_KR"},
		"mktId":       {mktID},
		"trdDd":       {day.Format("20060102")},
		"share":       {"1"},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, krxURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Browser-like headers (KRX blocks bot requests)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Referer", "http://data.krx.co.kr/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201020101")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("KRX API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("KRX API returned status %d", resp.StatusCode)
	}

	var parsed krxDayQuoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse KRX response: %w", err)
	}

	return parsed.OutBlock1, nil
}

var codeRe = regexp.MustCompile(`(\d{5,6})`)

// NormalizeCode extracts the digits of a stock code and zero-pads to 6.
// 'A005930', '5930' 같은 변형도 6자리로 통일한다.
func NormalizeCode(code string) string {
	m := codeRe.FindString(strings.TrimSpace(code))
	if m == "" {
		return ""
	}
	for len(m) < 6 {
		m = "0" + m
	}
	return m
}

// parseNum parses a KRX numeric string ("1,234", "-") into int64
func parseNum(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
