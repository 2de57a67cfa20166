package theme

import (
	"regexp"
	"strconv"
	"strings"
)

// Korean column vocabulary of the snapshot CSVs.
const (
	ColName       = "종목명"
	ColCode       = "종목코드"
	ColChangeRate = "등락률"
	ColTradeValue = "거래대금" // "거래대금(백만)" 변형 있음
	ColVolume     = "거래량"
	ColPrice      = "현재가"
	ColMarketCap  = "시가총액"
	ColChart      = "차트링크"
)

// millionsMarker on a trade-value header means the stored figures are in
// units of one million won; comparison keys get a x1,000,000 correction,
// displayed values never do.
const millionsMarker = "백만"

// columnMap is the explicit header mapping resolved once per file read.
// ⭐ SSOT: CSV 컬럼 해석은 이 매핑에서만
//
// Index is -1 when the header row has no matching column. Matching is exact
// first, then substring, so "거래대금(백만)" still binds to ColTradeValue.
type columnMap struct {
	headers    []string
	name       int
	code       int
	changeRate int
	tradeValue int
	volume     int
	price      int
	marketCap  int
	chart      int

	tradeValueInMillions bool
}

func resolveColumns(header []string) columnMap {
	cm := columnMap{
		headers:    header,
		name:       findColumn(header, ColName),
		code:       findColumn(header, ColCode),
		changeRate: findColumn(header, ColChangeRate),
		tradeValue: findColumn(header, ColTradeValue),
		volume:     findColumn(header, ColVolume),
		price:      findColumn(header, ColPrice),
		marketCap:  findColumn(header, ColMarketCap),
		chart:      findColumn(header, ColChart),
	}
	if cm.tradeValue >= 0 && strings.Contains(header[cm.tradeValue], millionsMarker) {
		cm.tradeValueInMillions = true
	}
	return cm
}

// findColumn returns the index of the column whose header equals contains,
// or failing that the first header containing it. -1 when absent.
func findColumn(header []string, contains string) int {
	for i, h := range header {
		if h == contains {
			return i
		}
	}
	for i, h := range header {
		if strings.Contains(h, contains) {
			return i
		}
	}
	return -1
}

func (cm columnMap) cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

var numRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// ToFloat coerces a display string ("1,234", "+5.67%") to a number.
// Malformed input coerces to 0: a bad cell must not fail the whole theme.
func ToFloat(s string) float64 {
	v, _ := toFloat(s)
	return v
}

// toFloat additionally reports whether the cell held a number at all.
// 정렬에서는 0과 "숫자 아님"을 구분해야 한다.
func toFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.NewReplacer(",", "", "%", "", "+", "").Replace(s)
	m := numRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ToInt64 coerces the way ToFloat does, truncating. 거래대금/거래량/시총 합계용.
func ToInt64(s string) int64 {
	return int64(ToFloat(s))
}
