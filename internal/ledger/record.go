package ledger

import (
	"strings"

	"github.com/google/uuid"
)

// Columns is the fixed 19-column schema of record.csv, in write order.
// 컬럼명은 파일을 직접 여는 사용자를 위해 한글 유지.
var Columns = []string{
	"기록ID",
	"기록시각",
	"날짜",
	"테마명",
	"테마랭크",
	"테마파일",
	"차트링크",
	"종목명",
	"종목코드",
	"시가총액",
	"거래대금",
	"등락률",
	"알파값",
	"베타값",
	"익일거래일",
	"익일종가",
	"익일고가",
	"익일종가수익률",
	"익일고가수익률",
}

// Record is one ledger row. All fields are display strings exactly as
// stored; numeric interpretation happens only where a computation needs it.
type Record struct {
	ID            string `json:"record_id"`
	SavedAt       string `json:"saved_at"`
	Date          string `json:"date"`
	ThemeTitle    string `json:"theme_title"`
	ThemeRank     string `json:"theme_rank"`
	ThemeFilename string `json:"theme_filename"`
	ChartURL      string `json:"chart_url"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	MarketCap     string `json:"market_cap"`
	TradeValue    string `json:"trade_value"`
	ChangeRate    string `json:"change_rate"`
	Alpha         string `json:"alpha"`
	Beta          string `json:"beta"`
	NextTradeDate string `json:"next_trade_date"`
	NextClose     string `json:"next_close"`
	NextHigh      string `json:"next_high"`
	CloseRate     string `json:"d1_close_rate"`
	HighRate      string `json:"d1_high_rate"`
}

// Row renders the record as a Korean-keyed map, the shape the JSON listing
// endpoint has always returned.
func (r *Record) Row() map[string]string {
	return map[string]string{
		"기록ID":    r.ID,
		"기록시각":    r.SavedAt,
		"날짜":      r.Date,
		"테마명":     r.ThemeTitle,
		"테마랭크":    r.ThemeRank,
		"테마파일":    r.ThemeFilename,
		"차트링크":    r.ChartURL,
		"종목명":     r.Name,
		"종목코드":    r.Code,
		"시가총액":    r.MarketCap,
		"거래대금":    r.TradeValue,
		"등락률":     r.ChangeRate,
		"알파값":     r.Alpha,
		"베타값":     r.Beta,
		"익일거래일":   r.NextTradeDate,
		"익일종가":    r.NextClose,
		"익일고가":    r.NextHigh,
		"익일종가수익률": r.CloseRate,
		"익일고가수익률": r.HighRate,
	}
}

func (r *Record) toCSV() []string {
	row := r.Row()
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = row[c]
	}
	return out
}

// fromCSV builds a record from one data row using the on-disk header.
// Unknown columns are ignored, missing known columns read as empty.
func fromCSV(header, rec []string) Record {
	cell := func(name string) string {
		for i, h := range header {
			if h == name && i < len(rec) {
				return rec[i]
			}
		}
		return ""
	}
	return Record{
		ID:            cell("기록ID"),
		SavedAt:       cell("기록시각"),
		Date:          cell("날짜"),
		ThemeTitle:    cell("테마명"),
		ThemeRank:     cell("테마랭크"),
		ThemeFilename: cell("테마파일"),
		ChartURL:      cell("차트링크"),
		Name:          cell("종목명"),
		Code:          cell("종목코드"),
		MarketCap:     cell("시가총액"),
		TradeValue:    cell("거래대금"),
		ChangeRate:    cell("등락률"),
		Alpha:         cell("알파값"),
		Beta:          cell("베타값"),
		NextTradeDate: cell("익일거래일"),
		NextClose:     cell("익일종가"),
		NextHigh:      cell("익일고가"),
		CloseRate:     cell("익일종가수익률"),
		HighRate:      cell("익일고가수익률"),
	}
}

// NewID mints a record identifier: a dash-free UUID, same shape the legacy
// ledger rows carry.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
