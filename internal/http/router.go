package http

import (
	"net/http"

	"gatepass-backend/internal/handlers"
	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	gatepassHandler *handlers.GatepassHandler,
	userHandler *handlers.UserHandler,
	totpHandler *handlers.TOTPHandler,
	auditLogHandler *handlers.AuditLogHandler,
	notificationHandler *handlers.NotificationHandler,
	documentHandler *handlers.DocumentHandler,
	unitHandler *handlers.UnitHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/verify-totp", authHandler.VerifyTOTP).Methods("POST")

	// Protected API routes - Gatepasses
	gatepassAPI := r.PathPrefix("/api/gatepasses").Subrouter()
	gatepassAPI.Use(authMiddleware.Authenticate)
	gatepassAPI.HandleFunc("", gatepassHandler.Create).Methods("POST")
	gatepassAPI.HandleFunc("/mine", gatepassHandler.ListMine).Methods("GET")
	gatepassAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(gatepassHandler.ListAll)).ServeHTTP).Methods("GET")
	gatepassAPI.HandleFunc("/counts", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(gatepassHandler.Counts)).ServeHTTP).Methods("GET")
	gatepassAPI.HandleFunc("/queue", authMiddleware.RequireRole(models.RoleSecurity, models.RoleAdmin)(http.HandlerFunc(gatepassHandler.SecurityQueue)).ServeHTTP).Methods("GET")
	gatepassAPI.HandleFunc("/number/{number}", authMiddleware.RequireRole(models.RoleSecurity, models.RoleAdmin)(http.HandlerFunc(gatepassHandler.Lookup)).ServeHTTP).Methods("GET")
	gatepassAPI.HandleFunc("/{id}", gatepassHandler.Get).Methods("GET")
	gatepassAPI.HandleFunc("/{id}", gatepassHandler.Update).Methods("PUT")
	gatepassAPI.HandleFunc("/{id}/approve", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(gatepassHandler.Approve)).ServeHTTP).Methods("POST")
	gatepassAPI.HandleFunc("/{id}/decline", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(gatepassHandler.Decline)).ServeHTTP).Methods("POST")
	gatepassAPI.HandleFunc("/{id}/verify", authMiddleware.RequireRole(models.RoleSecurity)(http.HandlerFunc(gatepassHandler.Verify)).ServeHTTP).Methods("POST")
	gatepassAPI.HandleFunc("/{id}/security-decline", authMiddleware.RequireRole(models.RoleSecurity)(http.HandlerFunc(gatepassHandler.SecurityDecline)).ServeHTTP).Methods("POST")
	gatepassAPI.HandleFunc("/{id}/pdf", documentHandler.DownloadPDF).Methods("GET")
	gatepassAPI.HandleFunc("/{id}/audit", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(auditLogHandler.ListByGatepass)).ServeHTTP).Methods("GET")

	// Protected API routes - Users
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("/me", userHandler.Me).Methods("GET")
	usersAPI.HandleFunc("/me/password", userHandler.ChangePassword).Methods("PUT")
	usersAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.ListUsers)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.CreateUser)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.GetUser)).ServeHTTP).Methods("GET")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.UpdateUser)).ServeHTTP).Methods("PUT")
	usersAPI.HandleFunc("/{id}/toggle-active", authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(userHandler.ToggleActive)).ServeHTTP).Methods("PATCH")

	// Protected API routes - 2FA
	totpAPI := r.PathPrefix("/api/totp").Subrouter()
	totpAPI.Use(authMiddleware.Authenticate)
	totpAPI.HandleFunc("/setup", totpHandler.Setup).Methods("POST")
	totpAPI.HandleFunc("/enable", totpHandler.Enable).Methods("POST")
	totpAPI.HandleFunc("/disable", totpHandler.Disable).Methods("POST")

	// Protected API routes - Audit log (admin only)
	auditAPI := r.PathPrefix("/api/audit-logs").Subrouter()
	auditAPI.Use(authMiddleware.RequireRole(models.RoleAdmin))
	auditAPI.HandleFunc("", auditLogHandler.List).Methods("GET")

	// Protected API routes - Notifications
	notificationsAPI := r.PathPrefix("/api/notifications").Subrouter()
	notificationsAPI.Use(authMiddleware.Authenticate)
	notificationsAPI.HandleFunc("", notificationHandler.List).Methods("GET")
	notificationsAPI.HandleFunc("/unread-count", notificationHandler.UnreadCount).Methods("GET")
	notificationsAPI.HandleFunc("/read-all", notificationHandler.MarkAllRead).Methods("POST")
	notificationsAPI.HandleFunc("/{id}/read", notificationHandler.MarkRead).Methods("POST")

	// Public reference data
	r.HandleFunc("/api/units", unitHandler.List).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
