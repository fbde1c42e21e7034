package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"choreking/internal/billing"
	"choreking/internal/config"
	"choreking/internal/database"
	"choreking/internal/handlers"
	"choreking/internal/notify"
	"choreking/internal/repository"
	"choreking/internal/security"
	"choreking/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	// Initialize repositories
	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	choreRepo := repository.NewChoreRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	contentRepo := repository.NewContentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	// Notification channels
	mailer, err := notify.NewEmailSender(cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}
	notifier := notify.NewNotifier(cfg.NotifyWebhookURL, cfg.NotifySigningSecret, mailer, cfg.AdminNotificationEmail)

	// Billing provider client (nil when not configured)
	billingClient := billing.NewClient(cfg)
	if billingClient == nil {
		log.Println("Billing provider not configured, subscription refresh disabled")
	}

	// Initialize services
	authService := service.NewAuthService(familyRepo, sessionRepo, notifier, mailer,
		cfg.SessionDuration, cfg.AdminEmail, cfg.AdminPassword)
	familyService := service.NewFamilyService(db, familyRepo, childRepo, choreRepo, rewardRepo, notifier)
	adminService := service.NewAdminService(familyRepo, childRepo, rewardRepo, billingClient)
	contentService := service.NewContentService(contentRepo)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	limiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	appHandler := handlers.NewAppHandler(middleware, authService, familyService,
		adminService, contentService, limiter)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/app", appHandler.HandleGetState)
	mux.HandleFunc("POST /api/app", appHandler.HandleAction)
	mux.HandleFunc("GET /healthz", appHandler.HandleHealth)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(authService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		authService.CleanupExpiredSessions()
	}
}
