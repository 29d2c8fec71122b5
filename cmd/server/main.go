package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/internal/bootstrap"
	"github.com/funnelsync/backend/internal/infrastructure/database"
	"github.com/funnelsync/backend/internal/interfaces/middleware"
	"github.com/funnelsync/backend/internal/interfaces/rest"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	if err := godotenv.Load(); err == nil {
		log.Println("📄 Loaded environment from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	if err := bootstrap.SeedDefaultFunnel(db); err != nil {
		log.Fatalf("Failed to seed default funnel: %v", err)
	}

	// Load sync configuration
	cfg := services.LoadSyncConfig()

	// Initialize service manager
	svcMgr, err := services.NewServiceManager(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	log.Println("🔧 Service manager initialized")

	// Create Gin router
	router := gin.Default()
	router.Use(middleware.Cors())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Initialize handlers
	webhookHandler := rest.NewWebhookHandler(svcMgr.Inbound)
	integrationHandler := rest.NewIntegrationHandler(svcMgr.Cards, svcMgr.Funnels, svcMgr.Activities)
	funnelHandler := rest.NewFunnelHandler(svcMgr.Funnels, svcMgr.Cards)
	cardHandler := rest.NewCardHandler(svcMgr.Cards)
	activityHandler := rest.NewActivityHandler(svcMgr.Activities)
	configHandler := rest.NewConfigHandler(svcMgr.Config)
	syncLogHandler := rest.NewSyncLogHandler(svcMgr.SyncLog)

	// Inbound platform webhook. A configured webhook key makes the
	// endpoint require x-api-key; without one the endpoint stays open
	// for platforms that cannot send custom headers.
	webhooks := router.Group("/webhooks")
	if cfg.WebhookAPIKeyHash != "" {
		webhooks.Use(middleware.RequireAPIKey(cfg.WebhookAPIKeyHash))
	}
	webhooks.POST("/platform", webhookHandler.Receive)

	// API routes
	api := router.Group("/api")
	{
		// Generic integration API for external agents and automations
		api.POST("/integration", middleware.RequireAPIKey(cfg.IntegrationAPIKeyHash), integrationHandler.Dispatch)

		// Funnel board reads
		api.GET("/funnels", funnelHandler.List)
		api.GET("/funnels/:id", funnelHandler.Get)
		api.GET("/funnels/:id/cards", funnelHandler.ListCards)
		api.DELETE("/stages/:id", funnelHandler.DeleteStage)

		// Card writes that drive outbound sync and the fan-out
		api.POST("/cards", cardHandler.Create)
		api.GET("/cards/:id", cardHandler.Get)
		api.PATCH("/cards/:id", cardHandler.Update)
		api.POST("/cards/:id/move", cardHandler.Move)

		// Follow-up activities
		api.POST("/cards/:id/activities", activityHandler.Create)
		api.GET("/cards/:id/activities", activityHandler.List)
		api.POST("/activities/:id/postpone", activityHandler.Postpone)
		api.POST("/activities/:id/complete", activityHandler.Complete)
		api.POST("/activities/:id/reopen", activityHandler.Reopen)
		api.POST("/activities/:id/cancel", activityHandler.Cancel)

		// Sync configuration entities
		api.GET("/mapping-rules", configHandler.ListMappingRules)
		api.POST("/mapping-rules", configHandler.CreateMappingRule)
		api.PATCH("/mapping-rules/:id", configHandler.UpdateMappingRule)
		api.GET("/automation-webhooks", configHandler.ListWebhooks)
		api.POST("/automation-webhooks", configHandler.CreateWebhook)
		api.PATCH("/automation-webhooks/:id", configHandler.UpdateWebhook)

		// Observability read side
		api.GET("/sync-logs", syncLogHandler.List)
	}

	// Start background workers
	svcMgr.StartWorkers()
	log.Println("⏰ Maintenance worker started")

	log.Println("\n═══════════════════════════════════════════════════════════")
	log.Println("🚀 FunnelSync Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:          http://localhost:%s", port)
	log.Printf("📥 Webhook:         http://localhost:%s/webhooks/platform", port)
	log.Printf("🔌 Integration API: http://localhost:%s/api/integration", port)
	log.Printf("📊 Sync logs:       http://localhost:%s/api/sync-logs", port)
	log.Printf("💚 Health check:    http://localhost:%s/health\n", port)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	svcMgr.StopWorkers()
	log.Println("🛑 Background workers stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
