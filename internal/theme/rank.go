package theme

import (
	"sort"
	"strings"
)

// RankedTheme is the derived per-day ranking entry. Rank depends on the
// dominant-exclusion toggle, so it is recomputed per request, never stored.
type RankedTheme struct {
	Rank     int    `json:"rank"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	TradeSum int64  `json:"trade_sum"`
}

// FilterDominant returns rows with the mega-cap deny-list removed.
func FilterDominant(rows []InstrumentRow) []InstrumentRow {
	out := make([]InstrumentRow, 0, len(rows))
	for _, r := range rows {
		if IsDominant(r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TradeSum is the theme's aggregate metric: the sum of trade value across
// rows. Malformed cells coerce to zero. The 백만 header variant is corrected
// to won here so the metric is unit-consistent across mixed snapshot days.
func TradeSum(rows []InstrumentRow, inMillions bool) int64 {
	var sum int64
	for _, r := range rows {
		v := ToInt64(r.TradeValue)
		if inMillions {
			v *= 1_000_000
		}
		sum += v
	}
	return sum
}

// RankThemes ranks every theme of a day by aggregate trade value.
// ⭐ SSOT: 상위 테마 선정은 여기서만
//
// The exclusion toggle is applied before the metric, so it changes both the
// instrument lists and the ranking. Tie-break is title then filename, both
// ascending, so repeated calls over unchanged files are byte-identical.
func (s *Store) RankThemes(day string, excludeDominant bool) []RankedTheme {
	files := s.ThemeFiles(day)
	ranked := make([]RankedTheme, 0, len(files))

	for _, f := range files {
		snap, err := s.ReadSnapshot(day, f)
		if err != nil {
			s.logger.WithError(err).WithField("file", f).Warn("Skipping unreadable snapshot")
			continue
		}
		rows := snap.Rows
		if excludeDominant {
			rows = FilterDominant(rows)
		}
		ranked = append(ranked, RankedTheme{
			Title:    snap.Title,
			Filename: snap.Filename,
			TradeSum: TradeSum(rows, snap.TradeValueInMillions),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TradeSum != ranked[j].TradeSum {
			return ranked[i].TradeSum > ranked[j].TradeSum
		}
		if ranked[i].Title != ranked[j].Title {
			return ranked[i].Title < ranked[j].Title
		}
		return ranked[i].Filename < ranked[j].Filename
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// SortKey selects the secondary sort applied to a theme's rows for display.
type SortKey string

const (
	SortByChangeRate SortKey = "changerate"
	SortByTradeValue SortKey = "tradevalue"
	SortByVolume     SortKey = "volume"
)

// ParseSortKey maps the query-parameter aliases onto a SortKey.
// Unknown input falls back to change-rate, 거부하지 않는다.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "거래대금", "trade_value", "tradevalue", "trade", "value":
		return SortByTradeValue
	case "거래량", "volume":
		return SortByVolume
	default:
		return SortByChangeRate
	}
}

// SortRows orders rows descending by the selected key. The sort is stable
// and independent of the theme ranking sort; malformed cells sink to the
// bottom instead of failing.
func SortRows(rows []InstrumentRow, key SortKey, tradeValueInMillions bool) []InstrumentRow {
	out := make([]InstrumentRow, len(rows))
	copy(out, rows)

	// 빈 칸이든 숫자가 아니든 센티널로 바닥에 깔린다. 0으로 취급하면
	// 실제 음수 값보다 위로 올라와 버린다.
	metric := func(r InstrumentRow) float64 {
		switch key {
		case SortByTradeValue:
			v, ok := toFloat(r.TradeValue)
			if !ok {
				return -1
			}
			if tradeValueInMillions {
				v *= 1_000_000
			}
			return v
		case SortByVolume:
			v, ok := toFloat(r.Volume)
			if !ok {
				return -1
			}
			return v
		default:
			v, ok := toFloat(r.ChangeRate)
			if !ok {
				return -1e18
			}
			return v
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return metric(out[i]) > metric(out[j])
	})
	return out
}
