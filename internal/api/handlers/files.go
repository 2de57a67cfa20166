package handlers

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/wonny/temaweb/internal/theme"
	"github.com/wonny/temaweb/pkg/logger"
)

// FileHandler serves raw snapshot CSVs for download
type FileHandler struct {
	store  *theme.Store
	logger *logger.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(store *theme.Store, log *logger.Logger) *FileHandler {
	return &FileHandler{
		store:  store,
		logger: log,
	}
}

// Download streams one theme CSV.
// GET /api/file/{date}/{filename}
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	path, err := h.store.FilePath(vars["date"], vars["filename"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "date/filename 형식이 올바르지 않습니다")
		return
	}
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+vars["filename"]+`"`)
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}
