package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/temaweb/internal/ledger"
	"github.com/wonny/temaweb/pkg/dateutil"
	"github.com/wonny/temaweb/pkg/logger"
)

// RecordHandler handles the ledger (record.csv) endpoints
// ⭐ SSOT: 기록 API 핸들러는 이 구조체에서만
type RecordHandler struct {
	ledger *ledger.Ledger
	logger *logger.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(l *ledger.Ledger, log *logger.Logger) *RecordHandler {
	return &RecordHandler{
		ledger: l,
		logger: log,
	}
}

// Download streams record.csv as a file.
// GET /api/record
func (h *RecordHandler) Download(w http.ResponseWriter, r *http.Request) {
	if !h.ledger.Exists() {
		respondError(w, http.StatusNotFound, "record.csv 파일이 없습니다")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="record.csv"`)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, h.ledger.Path())
}

// ListJSON returns the ledger as JSON for the web page.
// GET /api/record/json?order=desc&fix=0
func (h *RecordHandler) ListJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asc := isAscOrder(q.Get("order"))

	fixed := 0
	if parseBool(q.Get("fix")) {
		n, err := h.ledger.FixAll(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "record.csv 정정 실패: "+err.Error())
			return
		}
		fixed = n
	}

	records, err := h.ledger.List(asc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "record.csv 읽기 실패: "+err.Error())
		return
	}

	rows := make([]map[string]string, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].Row())
	}

	order := "desc"
	if asc {
		order = "asc"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"columns": ledger.Columns,
		"count":   len(rows),
		"order":   order,
		"fixed":   fixed,
		"records": rows,
	})
}

// Append validates and saves one record, backfilling forward fields first.
// POST /api/record
func (h *RecordHandler) Append(w http.ResponseWriter, r *http.Request) {
	var rec ledger.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, "JSON body가 필요합니다")
		return
	}

	if strings.TrimSpace(rec.Name) == "" || strings.TrimSpace(rec.Code) == "" {
		respondError(w, http.StatusBadRequest, "name/code가 필요합니다")
		return
	}
	if d := strings.TrimSpace(rec.Date); d != "" && dateutil.SortKey(d) == "" {
		respondError(w, http.StatusBadRequest, "date 형식이 올바르지 않습니다 (yymmdd 또는 yyyymmdd)")
		return
	}

	// 익일 종가/고가가 비어있으면 서버에서 채워 저장한다
	h.ledger.Backfill(r.Context(), &rec)

	if err := h.ledger.Append(&rec); err != nil {
		respondError(w, http.StatusInternalServerError, "record.csv 저장 실패: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"record_id":   rec.ID,
		"record_path": h.ledger.Path(),
	})
}

// Delete removes one record by 기록ID.
// DELETE /api/record/{record_id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["record_id"]

	deleted, err := h.ledger.Delete(id)
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		respondError(w, http.StatusNotFound, "해당 기록을 찾지 못했습니다")
		return
	case errors.Is(err, ledger.ErrNoLedger):
		respondError(w, http.StatusNotFound, "record.csv가 없습니다")
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "record.csv 삭제 실패: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"deleted": deleted,
	})
}

// isAscOrder parses the order parameter; default is descending.
func isAscOrder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "up", "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}
