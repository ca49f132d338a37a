package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"matchbook/internal/config"
	"matchbook/internal/database"
	"matchbook/internal/handlers"
	"matchbook/internal/logger"
	"matchbook/internal/matching"
	"matchbook/internal/middleware"
	"matchbook/internal/services"
	"matchbook/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Matching engine, with the AI layer only when configured
	var classifier matching.Classifier
	if appConfig.AIEnabled {
		classifier, err = matching.NewGeminiClassifier(appConfig.GeminiAPIKey, appConfig.GeminiModel, appConfig.AITimeout)
		if err != nil {
			return fmt.Errorf("failed to create AI classifier: %w", err)
		}
		log.Infow("AI matching enabled", "model", appConfig.GeminiModel)
	}
	engine := matching.NewEngine(matching.DefaultConfig(), classifier)

	// Initialize services
	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	statementService := services.NewStatementService(db)
	ingestService := services.NewIngestService(db)
	invoiceService := services.NewInvoiceService(db)
	transactionService := services.NewTransactionService(db)
	matchService := services.NewMatchService(db, engine, invoiceService, transactionService)
	mergeService := services.NewMergeService(db)

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(ingestService, statementService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, auditService)
	matchHandler := handlers.NewMatchHandler(matchService, auditService)
	mergeHandler := handlers.NewMergeHandler(mergeService, auditService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService)
	statementHandler := handlers.NewStatementHandler(statementService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Pipeline routes, authenticated with the shared API key
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(appConfig.PipelineAPIKey))
	pipeline.POST("/statements", ingestHandler.RegisterStatement)
	pipeline.POST("/statements/:id/transactions", ingestHandler.IngestTransactions)

	// Matching
	reconciliation := v1.Group("/reconciliation")
	reconciliation.POST("/match", matchHandler.RunMatch)

	// Transaction routes
	transactions := v1.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.PATCH("/status", transactionHandler.UpdateStatusBulk)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id/status", transactionHandler.UpdateStatus)
	transactions.POST("/:id/accept", transactionHandler.AcceptSuggestion)
	transactions.POST("/:id/reject", transactionHandler.RejectSuggestion)
	transactions.POST("/:id/link", transactionHandler.LinkInvoice)
	transactions.POST("/:id/unlink", transactionHandler.UnlinkInvoice)

	// Merge routes
	merges := v1.Group("/merges")
	merges.POST("", mergeHandler.CreateMerge)
	merges.DELETE("/:id", mergeHandler.DeleteMerge)

	// Invoice projection (read-only)
	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceHandler.ListCandidates)
	invoices.GET("/:id", invoiceHandler.GetInvoice)

	// Statement routes
	statements := v1.Group("/statements")
	statements.GET("/:id", statementHandler.GetStatement)
	statements.DELETE("/:id", statementHandler.DeleteStatement)

	log.Infof("Starting Matchbook reconciliation server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
