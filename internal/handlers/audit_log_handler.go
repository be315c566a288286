package handlers

import (
	"net/http"
	"strconv"

	"gatepass-backend/internal/repositories"
	"gatepass-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	Repo *repositories.AuditLogRepository
}

func NewAuditLogHandler(repo *repositories.AuditLogRepository) *AuditLogHandler {
	return &AuditLogHandler{Repo: repo}
}

// List returns one page of the global audit trail, newest first.
func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	entries, total, err := h.Repo.List(r.Context(), page)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// ListByGatepass returns the full trail of one gatepass, oldest first.
func (h *AuditLogHandler) ListByGatepass(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid gatepass ID", http.StatusBadRequest)
		return
	}

	entries, err := h.Repo.ListByGatepass(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, entries)
}
