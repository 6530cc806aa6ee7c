package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/SscSPs/invoice_review_app/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RouteExtras are optional collaborators of the HTTP layer. Nil fields disable their routes or middleware.
type RouteExtras struct {
	Limiter   *limiter.Limiter
	Websocket WebsocketServer
	// Swagger serves the generated API docs under /swagger outside production.
	Swagger gin.HandlerFunc
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	extras RouteExtras,
) {
	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	setupAPIV1Routes(r, cfg, services, extras)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg, extras.Swagger)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	extras RouteExtras,
) {
	v1 := r.Group("/api/v1")
	if extras.Limiter != nil {
		v1.Use(middleware.RateLimit(extras.Limiter))
	}
	v1.Use(middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	RegisterInvoiceRoutes(v1, services.Invoice)
	RegisterBalanceRoutes(v1, services.Balance)
	RegisterBudgetRequestRoutes(v1, services.BudgetRequest)
	RegisterDeletionRequestRoutes(v1, services.DeletionRequest)
	RegisterMaintenanceRoutes(v1, services.Sweeper)
	if extras.Websocket != nil {
		registerWebsocketRoute(v1, extras.Websocket)
	}
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config, handler gin.HandlerFunc) {
	if cfg.IsProduction || handler == nil {
		//no swagger in prod
		return
	}
	swagger := r.Group("/swagger")
	swagger.GET("/*any", handler)
}
