package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gatepass-backend/internal/apperrors"
	"gatepass-backend/internal/cache"
	"gatepass-backend/internal/metrics"
	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/models"
	"gatepass-backend/internal/services"
	"gatepass-backend/internal/timeutil"
	"gatepass-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type GatepassHandler struct {
	Service *services.GatepassService
}

func NewGatepassHandler(service *services.GatepassService) *GatepassHandler {
	return &GatepassHandler{Service: service}
}

// Create issues a new gatepass in pending status.
func (h *GatepassHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGatepassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gp, err := h.Service.Create(r.Context(), userID, &req, getIPAddress(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	metrics.TransitionsTotal.WithLabelValues("create").Inc()
	cache.InvalidateGatepassCaches(r.Context())

	utils.JSON(w, http.StatusCreated, gp)
}

// Get returns one gatepass with its items.
func (h *GatepassHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid gatepass ID", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetRoleFromContext(r.Context())

	gp, err := h.Service.Get(r.Context(), userID, role, id)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, gp)
}

// Update edits a pending gatepass owned by the caller.
func (h *GatepassHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid gatepass ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateGatepassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())

	gp, err := h.Service.Update(r.Context(), userID, id, &req, getIPAddress(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	cache.InvalidateGatepassCaches(r.Context())

	utils.JSON(w, http.StatusOK, gp)
}

// Approve is the admin approval transition.
func (h *GatepassHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve", func(actorID, id int, _ string, ip string) (*models.Gatepass, error) {
		return h.Service.AdminApprove(r.Context(), actorID, id, ip)
	}, false)
}

// Decline is the admin decline transition.
func (h *GatepassHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "decline", func(actorID, id int, reason, ip string) (*models.Gatepass, error) {
		return h.Service.AdminDecline(r.Context(), actorID, id, reason, ip)
	}, true)
}

// Verify is the security verification transition.
func (h *GatepassHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "verify", func(actorID, id int, _ string, ip string) (*models.Gatepass, error) {
		return h.Service.SecurityVerify(r.Context(), actorID, id, ip)
	}, false)
}

// SecurityDecline turns a gatepass back at the gate.
func (h *GatepassHandler) SecurityDecline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "security_decline", func(actorID, id int, reason, ip string) (*models.Gatepass, error) {
		return h.Service.SecurityDecline(r.Context(), actorID, id, reason, ip)
	}, true)
}

func (h *GatepassHandler) transition(w http.ResponseWriter, r *http.Request, action string,
	fn func(actorID, id int, reason, ip string) (*models.Gatepass, error), needsReason bool) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid gatepass ID", http.StatusBadRequest)
		return
	}

	var reason string
	if needsReason {
		var req models.DeclineGatepassRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		reason = req.Reason
	}

	actorID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	gp, err := fn(actorID, id, reason, getIPAddress(r))
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			metrics.TransitionConflictsTotal.Inc()
		}
		utils.Error(w, err)
		return
	}

	metrics.TransitionsTotal.WithLabelValues(action).Inc()
	cache.InvalidateGatepassCaches(r.Context())

	utils.JSON(w, http.StatusOK, gp)
}

// ListMine returns one page of the caller's own gatepasses.
func (h *GatepassHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	page, err := h.Service.ListMine(r.Context(), userID, parseFilter(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, page)
}

// SecurityQueue returns the verification queue, cached per page when no
// search or date filter narrows it.
func (h *GatepassHandler) SecurityQueue(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r)

	cacheable := filter.Search == "" && filter.DateFrom == nil && filter.DateTo == nil
	cacheKey := fmt.Sprintf(cache.SecurityQueueKeyFmt, filter.Page)
	if cacheable {
		if data, ok := cache.GetCached(r.Context(), cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
			return
		}
	}

	page, err := h.Service.SecurityQueue(r.Context(), filter)
	if err != nil {
		utils.Error(w, err)
		return
	}

	if cacheable {
		if data, err := json.Marshal(page); err == nil {
			cache.SetCached(r.Context(), cacheKey, data, time.Minute)
		}
	}

	utils.JSON(w, http.StatusOK, page)
}

// ListAll returns one page across every status (admin view).
func (h *GatepassHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.ListAll(r.Context(), parseFilter(r))
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, page)
}

// Counts returns the admin dashboard counters, cached for a minute.
func (h *GatepassHandler) Counts(w http.ResponseWriter, r *http.Request) {
	if data, ok := cache.GetCached(r.Context(), cache.StatusCountsKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	counts, err := h.Service.Counts(r.Context())
	if err != nil {
		utils.Error(w, err)
		return
	}

	if data, err := json.Marshal(counts); err == nil {
		cache.SetCached(r.Context(), cache.StatusCountsKey, data, time.Minute)
	}

	utils.JSON(w, http.StatusOK, counts)
}

// Lookup resolves a gatepass number (or its trailing digits) at the gate.
func (h *GatepassHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	gp, err := h.Service.LookupByNumber(r.Context(), number)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, gp)
}

func pathID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

func parseFilter(r *http.Request) models.GatepassFilter {
	q := r.URL.Query()

	filter := models.GatepassFilter{
		Bucket: q.Get("bucket"),
		Search: q.Get("search"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if from := q.Get("date_from"); from != "" {
		if t, err := timeutil.ParseDate(from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := q.Get("date_to"); to != "" {
		if t, err := timeutil.ParseDate(to); err == nil {
			filter.DateTo = &t
		}
	}

	return filter
}
