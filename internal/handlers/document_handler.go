package handlers

import (
	"fmt"
	"net/http"

	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/services"
	"gatepass-backend/pkg/utils"
)

type DocumentHandler struct {
	Service *services.DocumentService
}

func NewDocumentHandler(service *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

// DownloadPDF serves the printable pass. Only exists once the admin
// approval happened.
func (h *DocumentHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid gatepass ID", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())

	pdf, filename, err := h.Service.GatepassPDF(r.Context(), userID, role, id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(pdf)
}
