// Package insights derives multi-day momentum analytics from the per-day
// theme rankings.
package insights

import (
	"math"
	"sort"
	"strings"

	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/logger"
)

// HotTheme is one entry of the "hottest" board: how often a theme made the
// daily top-N over the window, and with what momentum.
type HotTheme struct {
	Title         string  `json:"title"`
	Freq          int     `json:"freq"`
	AvgRank       float64 `json:"avg_rank"`
	AvgTradeSum   int64   `json:"avg_trade_sum"`
	MomentumScore float64 `json:"momentum_score"`
	LastSeen      string  `json:"last_seen"`
	LastRank      int     `json:"last_rank"`
}

// RisingTheme is one entry of the "rising" board: average-rank improvement
// from the older half of the window to the newer half.
type RisingTheme struct {
	Title         string  `json:"title"`
	Improvement   float64 `json:"improvement"`
	PrevAvgRank   float64 `json:"prev_avg_rank"`
	RecentAvgRank float64 `json:"recent_avg_rank"`
	RecentFreq    int     `json:"recent_freq"`
}

// Summary bundles both boards plus the window actually used.
type Summary struct {
	Dates   []string      `json:"dates"`
	Hottest []HotTheme    `json:"hottest"`
	Rising  []RisingTheme `json:"rising"`
}

// HistoryPoint is one day's placement of a theme matched by title substring.
type HistoryPoint struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Rank     int    `json:"rank"`
	TradeSum int64  `json:"trade_sum"`
	Filename string `json:"filename"`
}

const boardSize = 20

// Analyzer computes momentum analytics over a snapshot store.
type Analyzer struct {
	store  *theme.Store
	logger *logger.Logger
}

// NewAnalyzer creates an insights analyzer over store.
func NewAnalyzer(store *theme.Store, log *logger.Logger) *Analyzer {
	return &Analyzer{
		store:  store,
		logger: log.WithField("module", "insights"),
	}
}

type appearance struct {
	date     string
	rank     int
	tradeSum int64
}

// Summarize computes the hottest and rising boards over the most recent
// lookback snapshot days, counting only top-N placements per day.
func (a *Analyzer) Summarize(lookback, topN int, excludeDominant bool) Summary {
	dates := a.store.Dates()
	if len(dates) == 0 {
		return Summary{Dates: []string{}, Hottest: []HotTheme{}, Rising: []RisingTheme{}}
	}
	if lookback < 1 {
		lookback = 1
	}
	if topN < 1 {
		topN = 1
	}
	if len(dates) > lookback {
		dates = dates[len(dates)-lookback:]
	}

	// title -> 날짜순 top-N 등장 이력
	hist := make(map[string][]appearance)
	for _, d := range dates {
		ranked := a.store.RankThemes(d, excludeDominant)
		for _, r := range ranked {
			if r.Rank > topN {
				break
			}
			if r.Title == "" {
				continue
			}
			hist[r.Title] = append(hist[r.Title], appearance{date: d, rank: r.Rank, tradeSum: r.TradeSum})
		}
	}

	dateIdx := make(map[string]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	hottest := make([]HotTheme, 0, len(hist))
	for title, rows := range hist {
		freq := len(rows)
		var rankSum, tradeSum int64
		var weighted float64
		for _, r := range rows {
			rankSum += int64(r.rank)
			tradeSum += r.tradeSum
			// 최근 날짜일수록 가중치↑
			w := float64(dateIdx[r.date]+1) / float64(len(dates))
			weighted += w * float64(topN+1-min(r.rank, topN+1))
		}
		hottest = append(hottest, HotTheme{
			Title:         title,
			Freq:          freq,
			AvgRank:       round2(float64(rankSum) / float64(freq)),
			AvgTradeSum:   tradeSum / int64(freq),
			MomentumScore: round2(weighted),
			LastSeen:      rows[len(rows)-1].date,
			LastRank:      rows[len(rows)-1].rank,
		})
	}

	sort.SliceStable(hottest, func(i, j int) bool {
		if hottest[i].Freq != hottest[j].Freq {
			return hottest[i].Freq > hottest[j].Freq
		}
		if hottest[i].AvgRank != hottest[j].AvgRank {
			return hottest[i].AvgRank < hottest[j].AvgRank
		}
		if hottest[i].MomentumScore != hottest[j].MomentumScore {
			return hottest[i].MomentumScore > hottest[j].MomentumScore
		}
		return hottest[i].AvgTradeSum > hottest[j].AvgTradeSum
	})

	rising := a.computeRising(dates, hist)

	return Summary{
		Dates:   dates,
		Hottest: truncateHot(hottest, boardSize),
		Rising:  truncateRising(rising, boardSize),
	}
}

// computeRising compares average rank between the older and newer halves of
// the window. Themes absent from either half carry no signal and are
// excluded, not treated as zero-improvement.
func (a *Analyzer) computeRising(dates []string, hist map[string][]appearance) []RisingTheme {
	split := len(dates) / 2
	if split < 1 {
		split = 1
	}
	older := make(map[string]bool, split)
	for _, d := range dates[:split] {
		older[d] = true
	}

	rising := make([]RisingTheme, 0, len(hist))
	for title, rows := range hist {
		var prevSum, recentSum, prevN, recentN int
		for _, r := range rows {
			if older[r.date] {
				prevSum += r.rank
				prevN++
			} else {
				recentSum += r.rank
				recentN++
			}
		}
		if prevN == 0 || recentN == 0 {
			continue
		}
		prevAvg := float64(prevSum) / float64(prevN)
		recentAvg := float64(recentSum) / float64(recentN)
		rising = append(rising, RisingTheme{
			Title:         title,
			Improvement:   round2(prevAvg - recentAvg), // +면 상승
			PrevAvgRank:   round2(prevAvg),
			RecentAvgRank: round2(recentAvg),
			RecentFreq:    recentN,
		})
	}

	sort.SliceStable(rising, func(i, j int) bool {
		if rising[i].Improvement != rising[j].Improvement {
			return rising[i].Improvement > rising[j].Improvement
		}
		if rising[i].RecentAvgRank != rising[j].RecentAvgRank {
			return rising[i].RecentAvgRank < rising[j].RecentAvgRank
		}
		return rising[i].RecentFreq > rising[j].RecentFreq
	})
	return rising
}

// ThemeHistory returns the placement of the first theme matching the title
// substring (case-insensitive) on each of the most recent lookback days.
func (a *Analyzer) ThemeHistory(title string, lookback int, excludeDominant bool) []HistoryPoint {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return []HistoryPoint{}
	}
	if lookback < 1 {
		lookback = 1
	}

	dates := a.store.Dates()
	if len(dates) > lookback {
		dates = dates[len(dates)-lookback:]
	}

	out := make([]HistoryPoint, 0, len(dates))
	for _, d := range dates {
		for _, r := range a.store.RankThemes(d, excludeDominant) {
			if strings.Contains(strings.ToLower(r.Title), needle) {
				out = append(out, HistoryPoint{
					Date:     d,
					Title:    r.Title,
					Rank:     r.Rank,
					TradeSum: r.TradeSum,
					Filename: r.Filename,
				})
				break
			}
		}
	}
	return out
}

func truncateHot(v []HotTheme, n int) []HotTheme {
	if len(v) > n {
		return v[:n]
	}
	return v
}

func truncateRising(v []RisingTheme, n int) []RisingTheme {
	if len(v) > n {
		return v[:n]
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
