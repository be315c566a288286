package handlers

import (
	"net/http"
	"strconv"

	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/repositories"
	"gatepass-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	Repo *repositories.NotificationRepository
}

func NewNotificationHandler(repo *repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{Repo: repo}
}

// List returns one page of the caller's in-app notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	notifications, total, err := h.Repo.ListByUser(r.Context(), userID, page)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"total":         total,
	})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	count, err := h.Repo.CountUnread(r.Context(), userID)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Repo.MarkRead(r.Context(), id, userID); err != nil {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "Marked read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.Repo.MarkAllRead(r.Context(), userID); err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "All marked read"})
}
