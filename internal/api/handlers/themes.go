package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/temaweb/internal/calendar"
	"github.com/wonny/temaweb/internal/forward"
	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/dateutil"
	"github.com/wonny/temaweb/pkg/logger"
	"github.com/wonny/temaweb/pkg/redis"
)

// ThemeHandler handles the ranked-theme API endpoints
// ⭐ SSOT: 테마 API 핸들러는 이 구조체에서만
type ThemeHandler struct {
	store    *theme.Store
	resolver *calendar.Resolver
	joiner   *forward.Joiner
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewThemeHandler creates a new theme handler
func NewThemeHandler(store *theme.Store, resolver *calendar.Resolver, joiner *forward.Joiner, cache *redis.Cache, log *logger.Logger) *ThemeHandler {
	return &ThemeHandler{
		store:    store,
		resolver: resolver,
		joiner:   joiner,
		cache:    cache,
		logger:   log,
	}
}

// forwardInfo is the base/next trading-day context attached to responses.
type forwardInfo struct {
	OK            bool   `json:"ok"`
	Warn          string `json:"warn,omitempty"`
	BaseTradeDate string `json:"base_trade_date,omitempty"` // yymmdd
	NextTradeDate string `json:"next_trade_date,omitempty"` // yymmdd

	base time.Time
	next time.Time
}

// resolveForward computes the (base, next) trading days for a snapshot day.
// "아직 다음 거래일 데이터 없음"은 에러가 아니라 ok=false + warn.
func (h *ThemeHandler) resolveForward(ctx context.Context, day string) forwardInfo {
	d, ok := dateutil.ParseDay(day)
	if !ok {
		return forwardInfo{Warn: "날짜를 해석하지 못했습니다: " + day}
	}

	base, ok := h.resolver.ResolveBase(ctx, d)
	if !ok {
		return forwardInfo{Warn: "기준 거래일을 찾지 못했습니다"}
	}
	next, ok := h.resolver.ResolveNext(ctx, base)
	if !ok {
		return forwardInfo{
			Warn:          "익일(다음 거래일) 데이터가 아직 없습니다",
			BaseTradeDate: base.Format("060102"),
			base:          base,
		}
	}
	return forwardInfo{
		OK:            true,
		BaseTradeDate: base.Format("060102"),
		NextTradeDate: next.Format("060102"),
		base:          base,
		next:          next,
	}
}

// enrich attaches forward returns to rows in place. Rows without a
// resolvable code stay bare.
func (h *ThemeHandler) enrich(ctx context.Context, rows []theme.InstrumentRow, fwd forwardInfo) {
	if !fwd.OK {
		return
	}
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.Code)
	}
	returns := h.joiner.Enrich(ctx, codes, fwd.base, fwd.next)
	for i := range rows {
		rows[i].Forward = returns[rows[i].Code]
	}
}

// rankedThemes computes (or recalls) the day's ranking. Past days are
// immutable until a re-crawl, so they cache long; the latest day short.
func (h *ThemeHandler) rankedThemes(ctx context.Context, day string, excludeDominant bool, isLatest bool) []theme.RankedTheme {
	key := redis.RankedThemesKey(day, excludeDominant)

	var cached []theme.RankedTheme
	if hit, err := h.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached
	}

	ranked := h.store.RankThemes(day, excludeDominant)

	ttl := redis.TTLDaily
	if isLatest {
		ttl = redis.TTLShort
	}
	if err := h.cache.Set(ctx, key, ranked, ttl); err != nil {
		h.logger.WithError(err).Debug("Ranked themes cache write failed")
	}
	return ranked
}

type themePreview struct {
	Rank     int                   `json:"rank"`
	Title    string                `json:"title"`
	TradeSum int64                 `json:"trade_sum"`
	Filename string                `json:"filename"`
	Preview  []theme.InstrumentRow `json:"preview"`
}

// GetThemes returns the day's top themes with preview rows.
// GET /api/themes?limit=4&preview_n=4&date=yymmdd&exclude_bigcaps=false&sort=changerate
func (h *ThemeHandler) GetThemes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	day, isLatest, ok := h.resolveDay(w, q.Get("date"))
	if !ok {
		return
	}

	limit := intParam(q.Get("limit"), 4)
	previewN := intParam(q.Get("preview_n"), 4)
	if limit < 0 {
		limit = 0
	}
	if previewN < 0 {
		previewN = 0
	}
	excludeDominant := parseBool(q.Get("exclude_bigcaps"))
	sortKey := theme.ParseSortKey(q.Get("sort"))

	fwd := h.resolveForward(ctx, day)

	ranked := h.rankedThemes(ctx, day, excludeDominant, isLatest)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]themePreview, 0, len(ranked))
	for _, t := range ranked {
		snap, err := h.store.ReadSnapshot(day, t.Filename)
		if err != nil {
			h.logger.WithError(err).WithField("file", t.Filename).Warn("Snapshot vanished mid-request")
			continue
		}
		rows := snap.Rows
		if excludeDominant {
			rows = theme.FilterDominant(rows)
		}
		rows = theme.SortRows(rows, sortKey, snap.TradeValueInMillions)
		if len(rows) > previewN {
			rows = rows[:previewN]
		}
		h.enrich(ctx, rows, fwd)

		out = append(out, themePreview{
			Rank:     t.Rank,
			Title:    t.Title,
			TradeSum: t.TradeSum,
			Filename: t.Filename,
			Preview:  rows,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":            day,
		"exclude_bigcaps": excludeDominant,
		"sort":            string(sortKey),
		"forward":         fwd,
		"themes":          out,
	})
}

// GetThemeDetail returns every row of the theme at a rank.
// GET /api/themes/{rank}?date=yymmdd&exclude_bigcaps=false&sort=changerate
func (h *ThemeHandler) GetThemeDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	rank, err := strconv.Atoi(mux.Vars(r)["rank"])
	if err != nil || rank < 1 {
		respondError(w, http.StatusBadRequest, "rank는 1 이상의 정수여야 합니다")
		return
	}

	day, isLatest, ok := h.resolveDay(w, q.Get("date"))
	if !ok {
		return
	}
	excludeDominant := parseBool(q.Get("exclude_bigcaps"))
	sortKey := theme.ParseSortKey(q.Get("sort"))

	ranked := h.rankedThemes(ctx, day, excludeDominant, isLatest)
	if rank > len(ranked) {
		respondError(w, http.StatusNotFound, "해당 랭크의 테마가 없습니다")
		return
	}
	target := ranked[rank-1]

	snap, err := h.store.ReadSnapshot(day, target.Filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "스냅샷을 읽지 못했습니다")
		return
	}
	rows := snap.Rows
	if excludeDominant {
		rows = theme.FilterDominant(rows)
	}
	rows = theme.SortRows(rows, sortKey, snap.TradeValueInMillions)

	fwd := h.resolveForward(ctx, day)
	h.enrich(ctx, rows, fwd)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":            day,
		"exclude_bigcaps": excludeDominant,
		"sort":            string(sortKey),
		"forward":         fwd,
		"rank":            target.Rank,
		"title":           target.Title,
		"trade_sum":       target.TradeSum,
		"filename":        target.Filename,
		"rows":            rows,
	})
}

// resolveDay validates the date parameter, defaulting to the latest day.
// Writes the error response itself when invalid.
func (h *ThemeHandler) resolveDay(w http.ResponseWriter, date string) (day string, isLatest, ok bool) {
	if date != "" {
		if !dateutil.IsYYMMDD(date) {
			respondError(w, http.StatusBadRequest, "date는 yymmdd 형식이어야 합니다")
			return "", false, false
		}
		return date, false, true
	}

	latest, err := h.store.LatestDate()
	if err != nil {
		if errors.Is(err, theme.ErrNoDates) {
			respondError(w, http.StatusNotFound, "날짜 폴더를 찾을 수 없습니다")
		} else {
			respondError(w, http.StatusInternalServerError, "스냅샷 루트를 읽지 못했습니다")
		}
		return "", false, false
	}
	return latest, true, true
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
