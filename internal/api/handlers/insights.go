package handlers

import (
	"net/http"
	"strings"

	"github.com/wonny/temaweb/internal/insights"
	"github.com/wonny/temaweb/pkg/logger"
	"github.com/wonny/temaweb/pkg/redis"
)

// InsightsHandler handles the momentum analytics endpoints
// ⭐ SSOT: 인사이트 API 핸들러는 이 구조체에서만
type InsightsHandler struct {
	analyzer *insights.Analyzer
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(analyzer *insights.Analyzer, cache *redis.Cache, log *logger.Logger) *InsightsHandler {
	return &InsightsHandler{
		analyzer: analyzer,
		cache:    cache,
		logger:   log,
	}
}

// GetSummary returns the hottest/rising boards.
// GET /api/insights/summary?lookback=20&top_n=10&exclude_bigcaps=false
func (h *InsightsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	lookback := clamp(intParam(q.Get("lookback"), 20), 5, 120)
	topN := clamp(intParam(q.Get("top_n"), 10), 3, 30)
	excludeDominant := parseBool(q.Get("exclude_bigcaps"))

	key := redis.InsightsKey(lookback, topN, excludeDominant)
	var summary insights.Summary
	hit, err := h.cache.Get(ctx, key, &summary)
	if err != nil || !hit {
		summary = h.analyzer.Summarize(lookback, topN, excludeDominant)
		if err := h.cache.Set(ctx, key, summary, redis.TTLMedium); err != nil {
			h.logger.WithError(err).Debug("Insights cache write failed")
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lookback":        lookback,
		"top_n":           topN,
		"exclude_bigcaps": excludeDominant,
		"dates":           summary.Dates,
		"hottest":         summary.Hottest,
		"rising":          summary.Rising,
	})
}

// GetThemeHistory returns one theme's daily placements.
// GET /api/insights/theme-history?title=전기차&lookback=60&exclude_bigcaps=false
func (h *InsightsHandler) GetThemeHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	title := strings.TrimSpace(q.Get("title"))
	if title == "" {
		respondError(w, http.StatusBadRequest, "title 파라미터가 필요합니다")
		return
	}
	lookback := clamp(intParam(q.Get("lookback"), 60), 10, 240)
	excludeDominant := parseBool(q.Get("exclude_bigcaps"))

	rows := h.analyzer.ThemeHistory(title, lookback, excludeDominant)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"title":           title,
		"lookback":        lookback,
		"exclude_bigcaps": excludeDominant,
		"count":           len(rows),
		"rows":            rows,
	})
}
