package handlers

import (
	"encoding/json"
	"net/http"

	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/services"
	"gatepass-backend/pkg/utils"
)

type TOTPHandler struct {
	Service *services.TOTPService
}

func NewTOTPHandler(service *services.TOTPService) *TOTPHandler {
	return &TOTPHandler{Service: service}
}

// Setup provisions a fresh secret; 2FA stays off until Enable confirms it.
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	resp, err := h.Service.GenerateSetup(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

func (h *TOTPHandler) Enable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Service.VerifyAndEnable(r.Context(), userID, req.Code, getIPAddress(r)); err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA enabled"})
}

func (h *TOTPHandler) Disable(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPDisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Service.Disable(r.Context(), userID, &req, getIPAddress(r)); err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA disabled"})
}
