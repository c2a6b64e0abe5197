// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"tipjar/internal/config"
	"tipjar/internal/handlers"
	"tipjar/internal/middleware"
	"tipjar/internal/models"
	"tipjar/internal/repositories"
	"tipjar/internal/services/ledger"
	"tipjar/internal/services/payment"
	"tipjar/internal/services/summary"
	"tipjar/internal/services/token"
	"tipjar/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize repositories
	tokenRepo := repositories.NewTokenRepository(db)
	tipRepo := repositories.NewTipRepository(db)
	eventRepo := repositories.NewWebhookEventRepository(db)
	summaryRepo := repositories.NewSummaryRepository(db)

	// Initialize services in dependency order
	provider := payment.NewStripeProvider(
		config.GetEnv("STRIPE_SECRET_KEY", ""),
		config.GetDurationEnv("STRIPE_CALL_TIMEOUT", payment.DefaultCallTimeout),
	)
	tokenService := token.NewService(tokenRepo)
	ledgerService := ledger.NewService(tipRepo, provider, ledger.LedgerConfig{
		RefundWindow:    config.GetDurationEnv("REFUND_WINDOW", ledger.DefaultRefundWindow),
		DefaultCurrency: config.GetEnv("DEFAULT_CURRENCY", "GBP"),
	})
	webhookService := webhook.NewService(eventRepo, ledgerService)
	summaryService := summary.NewService(tipRepo, summaryRepo, repositories.CacheService, summary.SummaryConfig{
		Currency: config.GetEnv("DEFAULT_CURRENCY", "GBP"),
	})

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(tokenService, ledgerService)
	webhookHandler := handlers.NewWebhookHandler(webhookService, config.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	tokenHandler := handlers.NewTokenHandler(tokenService)
	tipHandler := handlers.NewTipHandler(ledgerService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)

	auth := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", "tipjar"))

	// Public routes
	app.Get("/health", handlers.HealthCheck)
	app.Post("/api/scan", scanHandler.Scan)
	app.Post("/api/webhooks/stripe", webhookHandler.HandleStripeEvent)

	// Authenticated management API
	api := app.Group("/api", auth.Handler)

	api.Post("/tokens", middleware.HasPermission(models.PermissionTokenIssue), tokenHandler.Issue)
	api.Get("/tokens", tokenHandler.List)
	api.Delete("/tokens/:id", middleware.HasPermission(models.PermissionTokenRevoke), tokenHandler.Revoke)
	api.Post("/staff/:id/deactivate", middleware.HasPermission(models.PermissionStaffManage), tokenHandler.DeactivateStaff)

	api.Get("/tips/:id", tipHandler.Get)
	api.Post("/tips/:id/refund", middleware.HasPermission(models.PermissionTipRefund), tipHandler.Refund)
	api.Get("/staff/:id/tips/total", middleware.HasPermission(models.PermissionSummaryRead), tipHandler.StaffTotal)

	api.Get("/summaries", middleware.HasPermission(models.PermissionSummaryRead), summaryHandler.Get)
	api.Post("/summaries/rebuild", middleware.HasPermission(models.PermissionSummaryRead), summaryHandler.Rebuild)

	api.Get("/webhooks/unprocessed", middleware.HasPermission(models.PermissionStaffManage), webhookHandler.ListUnprocessed)
}
