package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"gatepass-backend/internal/auth"
	"gatepass-backend/internal/cache"
	"gatepass-backend/internal/config"
	"gatepass-backend/internal/database"
	"gatepass-backend/internal/db"
	"gatepass-backend/internal/handlers"
	"gatepass-backend/internal/health"
	apphttp "gatepass-backend/internal/http"
	"gatepass-backend/internal/middleware"
	"gatepass-backend/internal/monitoring"
	"gatepass-backend/internal/notify"
	"gatepass-backend/internal/repositories"
	"gatepass-backend/internal/services"
	"gatepass-backend/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - continues without cache on failure)
	if err := cache.Init(); err != nil {
		log.Printf("Warning: Redis cache unavailable: %v", err)
	}

	// Run database migrations
	migrationCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	migrator := database.NewMigrator(pool, "migrations")
	if err := migrator.RunMigrations(migrationCtx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Health checker
	healthChecker := health.NewHealthChecker(pool)

	// Start monitoring server on its own port
	go monitoring.NewServer(pool, cfg.Server.MonitoringPort).Start()

	// JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	gatepassRepo := repositories.NewGatepassRepository(pool)
	userRepo := repositories.NewUserRepository(pool)
	auditLogRepo := repositories.NewAuditLogRepository(pool)
	notificationRepo := repositories.NewNotificationRepository(pool)

	// Outbound message senders, in priority order
	var senders []notify.Sender
	if cfg.Notify.WhatsAppAPIKey != "" && cfg.Notify.WhatsAppPhoneID != "" {
		senders = append(senders, notify.NewWhatsAppSender(cfg.Notify.WhatsAppAPIKey, cfg.Notify.WhatsAppPhoneID))
	}
	if cfg.Notify.SMSAPIKey != "" {
		senders = append(senders, notify.NewSMSSender(cfg.Notify.SMSAPIKey))
	}
	if len(senders) == 0 {
		log.Println("No outbound message provider configured, using mock sender")
		senders = append(senders, notify.NewMockSender())
	}
	dispatcher := notify.NewDispatcher(notificationRepo, senders...)

	// S3 archive for issued pass documents (nil when not configured)
	archiveStore := storage.NewArchiveStore(context.Background(), cfg)

	// Services
	gatepassService := services.NewGatepassService(gatepassRepo, auditLogRepo, dispatcher, userRepo)
	userService := services.NewUserService(userRepo, auditLogRepo, jwtManager)
	totpService := services.NewTOTPService(userRepo, auditLogRepo, jwtManager)
	documentService := services.NewDocumentService(gatepassRepo, userRepo, archiveStore)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, totpService)
	gatepassHandler := handlers.NewGatepassHandler(gatepassService)
	userHandler := handlers.NewUserHandler(userService)
	totpHandler := handlers.NewTOTPHandler(totpService)
	auditLogHandler := handlers.NewAuditLogHandler(auditLogRepo)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	documentHandler := handlers.NewDocumentHandler(documentService)
	unitHandler := handlers.NewUnitHandler()
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Router
	router := apphttp.NewRouter(
		authHandler,
		gatepassHandler,
		userHandler,
		totpHandler,
		auditLogHandler,
		notificationHandler,
		documentHandler,
		unitHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
