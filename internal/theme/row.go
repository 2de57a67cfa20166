package theme

import (
	"strings"

	"github.com/wonny/temaweb/internal/forward"
)

// InstrumentRow is one instrument line of a theme snapshot. The typed fields
// carry the display strings exactly as stored; Raw passes every original
// column through untouched for clients that render the full table.
type InstrumentRow struct {
	Name       string            `json:"name"`
	Code       string            `json:"code"`
	ChangeRate string            `json:"change_rate"`
	Price      string            `json:"price"`
	TradeValue string            `json:"trade_value"`
	Volume     string            `json:"volume"`
	MarketCap  string            `json:"market_cap"`
	ChartURL   string            `json:"chart_url"`
	Raw        map[string]string `json:"raw"`

	// Forward is attached by the forward-return joiner; nil means the
	// forward data was not resolvable, which is distinct from a zero return.
	Forward *forward.Return `json:"forward,omitempty"`
}

func newRow(cm columnMap, record []string) InstrumentRow {
	raw := make(map[string]string, len(cm.headers))
	for i, h := range cm.headers {
		if i < len(record) {
			raw[h] = record[i]
		} else {
			raw[h] = ""
		}
	}
	return InstrumentRow{
		Name:       cm.cell(record, cm.name),
		Code:       cm.cell(record, cm.code),
		ChangeRate: cm.cell(record, cm.changeRate),
		Price:      cm.cell(record, cm.price),
		TradeValue: cm.cell(record, cm.tradeValue),
		Volume:     cm.cell(record, cm.volume),
		MarketCap:  cm.cell(record, cm.marketCap),
		ChartURL:   cm.cell(record, cm.chart),
		Raw:        raw,
	}
}

// IsDominant reports whether name is on the mega-cap deny-list.
// 삼성전자(우 포함) + SK하이닉스만 제외한다. 테마 선정 왜곡 제거용.
func IsDominant(name string) bool {
	n := strings.TrimSpace(name)
	if n == "" {
		return false
	}
	if strings.HasPrefix(n, "삼성전자") {
		return true
	}
	return n == "SK하이닉스"
}
