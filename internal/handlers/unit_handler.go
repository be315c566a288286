package handlers

import (
	"net/http"

	"gatepass-backend/internal/models"
	"gatepass-backend/pkg/utils"
)

type UnitHandler struct{}

func NewUnitHandler() *UnitHandler {
	return &UnitHandler{}
}

// List returns the measurement unit vocabulary for item entry forms.
func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, models.DefaultUnits)
}
