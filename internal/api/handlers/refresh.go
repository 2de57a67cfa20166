package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/wonny/temaweb/internal/refresh"
	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/config"
	"github.com/wonny/temaweb/pkg/logger"
)

// RefreshHandler handles the refresh trigger and process status
// ⭐ SSOT: 리프레시 API 핸들러는 이 구조체에서만
type RefreshHandler struct {
	orchestrator *refresh.Orchestrator
	store        *theme.Store
	config       *config.Config
	logger       *logger.Logger
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(o *refresh.Orchestrator, store *theme.Store, cfg *config.Config, log *logger.Logger) *RefreshHandler {
	return &RefreshHandler{
		orchestrator: o,
		store:        store,
		config:       cfg,
		logger:       log,
	}
}

// Trigger starts a snapshot re-ingestion.
// POST /api/refresh. 403 when disabled or the token is wrong, 409 when a
// run is already in flight.
func (h *RefreshHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !h.config.Refresh.Enabled {
		respondError(w, http.StatusForbidden, "REFRESH_ENABLED=false 입니다")
		return
	}
	if token := h.config.Refresh.Token; token != "" {
		got := r.Header.Get("X-Refresh-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			respondError(w, http.StatusForbidden, "토큰이 올바르지 않습니다")
			return
		}
	}

	id, err := h.orchestrator.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, refresh.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "이미 갱신 작업이 진행 중입니다")
			return
		}
		respondError(w, http.StatusInternalServerError, "갱신 시작 실패: "+err.Error())
		return
	}

	st := h.orchestrator.Status()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"started_at": st.StartedAt,
		"refresh_id": id,
	})
}

// Status reports the snapshot inventory and refresh progress.
// GET /api/status
func (h *RefreshHandler) Status(w http.ResponseWriter, r *http.Request) {
	dates := h.store.Dates()
	var latest interface{}
	if len(dates) > 0 {
		latest = dates[len(dates)-1]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tema_root":      h.store.Root(),
		"dates":          dates,
		"latest":         latest,
		"enable_refresh": h.config.Refresh.Enabled,
		"refresh":        h.orchestrator.Status(),
	})
}
