package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ThemeRef is one entry of the theme list page.
type ThemeRef struct {
	Name string
	No   string
	URL  string
}

// StockRow is one instrument line scraped from a theme detail table.
type StockRow struct {
	Name       string
	Code       string
	Price      string
	ChangeRate string
	TradeValue string // 백만 단위, 표기 그대로
	Volume     string
}

// parseThemeList extracts the theme links from one list page.
func parseThemeList(doc *goquery.Document, base string) []ThemeRef {
	var themes []ThemeRef
	seen := make(map[string]bool)

	doc.Find(`a[href*="sise_group_detail.naver?type=theme&no="]`).Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		if name == "" || href == "" {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}
		no := u.Query().Get("no")
		if no == "" || seen[no] {
			return
		}
		seen[no] = true
		themes = append(themes, ThemeRef{Name: name, No: no, URL: base + u.String()})
	})
	return themes
}

// parseThemeDetail extracts the stock table of one theme detail page.
// Columns are located by header text, not position: 페이지 구조가 조금
// 바뀌어도 버틴다.
func parseThemeDetail(doc *goquery.Document) ([]StockRow, error) {
	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		found := false
		t.Find("th").Each(func(_ int, th *goquery.Selection) {
			if strings.TrimSpace(th.Text()) == "종목명" {
				found = true
			}
		})
		if found {
			table = t
			return false
		}
		return true
	})
	if table == nil {
		return nil, fmt.Errorf("stock table not found")
	}

	cols := map[string]int{}
	table.Find("th").Each(func(i int, th *goquery.Selection) {
		text := strings.TrimSpace(th.Text())
		switch {
		case text == "종목명":
			cols["name"] = i
		case text == "현재가":
			cols["price"] = i
		case strings.Contains(text, "등락률"):
			cols["change"] = i
		case strings.Contains(text, "거래대금"):
			cols["trade"] = i
		case text == "거래량" || strings.Contains(text, "거래량"):
			if _, ok := cols["volume"]; !ok {
				cols["volume"] = i
			}
		}
	})
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("종목명 column not found")
	}

	var rows []StockRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() <= cols["name"] {
			return
		}

		cell := func(key string) string {
			idx, ok := cols[key]
			if !ok || idx >= tds.Length() {
				return ""
			}
			return strings.TrimSpace(tds.Eq(idx).Text())
		}

		// 종목 행은 항상 종목명이 개별 종목 페이지로 링크된다;
		// 광고/여백 행은 링크가 없어 여기서 걸러진다.
		nameTd := tds.Eq(cols["name"])
		href, ok := nameTd.Find(`a[href*="code="]`).Attr("href")
		if !ok {
			return
		}
		name := normalizeStockName(nameTd.Text())
		if name == "" {
			return
		}

		code := ""
		if u, err := url.Parse(href); err == nil {
			code = normalizeStockCode(u.Query().Get("code"))
		}

		rows = append(rows, StockRow{
			Name:       name,
			Code:       code,
			Price:      cell("price"),
			ChangeRate: cell("change"),
			TradeValue: cell("trade"),
			Volume:     cell("volume"),
		})
	})
	return rows, nil
}

var nonDigitRe = regexp.MustCompile(`\D`)

// normalizeStockCode pads a code to the 6-digit KRX form. 빈 값/쓰레기는 "".
func normalizeStockCode(code string) string {
	s := nonDigitRe.ReplaceAllString(strings.TrimSpace(code), "")
	if s == "" {
		return ""
	}
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return s
}

func normalizeStockName(name string) string {
	s := strings.ReplaceAll(name, "*", "")
	return strings.Join(strings.Fields(s), " ")
}

// chartURL builds the TradingView link stored in the 차트링크 column.
// 예) https://kr.tradingview.com/symbols/KRX-005930/
func chartURL(code string) string {
	c := normalizeStockCode(code)
	if c == "" {
		return ""
	}
	return fmt.Sprintf("https://kr.tradingview.com/symbols/KRX-%s/", c)
}

var filenameBadRe = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeFilename makes a theme title safe as a CSV filename.
func sanitizeFilename(name string) string {
	s := filenameBadRe.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.Join(strings.Fields(s), " ")
}

// formatComma renders an integer with thousands separators, the form the
// filename metric suffix uses.
func formatComma(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
