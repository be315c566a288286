package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gatepass-backend/internal/cache"
	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/services"
	"gatepass-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	Service *services.UserService
}

func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{Service: service}
}

// Me returns the authenticated account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.List(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}

	utils.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := h.Service.Get(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	user, err := h.Service.CreateUser(r.Context(), actorID, &req, getIPAddress(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	cache.InvalidateUserCaches(r.Context())

	utils.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	user, err := h.Service.UpdateUser(r.Context(), actorID, id, &req, getIPAddress(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	cache.InvalidateUserCaches(r.Context())

	utils.JSON(w, http.StatusOK, user)
}

// ToggleActive suspends or reinstates an account.
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Service.SetActive(r.Context(), actorID, id, req.Active, getIPAddress(r)); err != nil {
		utils.Error(w, err)
		return
	}

	cache.InvalidateUserCaches(r.Context())

	utils.JSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// ChangePassword is the self-service password change.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Service.ChangePassword(r.Context(), userID, &req, getIPAddress(r)); err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}
