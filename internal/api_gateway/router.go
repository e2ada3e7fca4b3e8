package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/handyhub-payment-engine/internal/api_gateway/handler"
	"github.com/handyhub-payment-engine/internal/api_gateway/middleware"
	"github.com/handyhub-payment-engine/internal/config"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	authCfg *config.AuthConfig,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Checkout, lookup and refund
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
			payments.GET("/:bookingId", paymentHandler.GetByBookingID)
			payments.POST("/:bookingId/refund", paymentHandler.Refund)
		}

		// Processor webhook ingress, guarded by the shared webhook secret
		webhooks := v1.Group("/webhooks", middleware.WebhookAuth(authCfg.WebhookSecret))
		{
			webhooks.POST("/payment", webhookHandler.HandlePaymentEvent)
		}

		// Operator reconciliation surface, guarded by the trigger secret
		reconciliation := v1.Group("/reconciliation", middleware.BearerAuth(authCfg.TriggerSecret))
		{
			reconciliation.POST("/runs", reconciliationHandler.TriggerRun)
			reconciliation.GET("/runs", reconciliationHandler.ListRuns)
			reconciliation.GET("/runs/:id", reconciliationHandler.GetRunByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
