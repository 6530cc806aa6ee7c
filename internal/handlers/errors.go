package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/invoice_review_app/internal/apperrors"
	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/SscSPs/invoice_review_app/internal/dto"
	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status. Client errors carry the service message;
// server errors are logged and answered with a generic one.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromContext(c)
	status := apperrors.StatusCode(err)

	switch {
	case status == http.StatusBadGateway:
		logger.Error("Dependency failed during "+action, slog.String("error", err.Error()))
		c.JSON(status, dto.ErrorResponse{Error: "A dependent service is unavailable, please retry"})
	case status >= http.StatusInternalServerError:
		logger.Error("Failed to "+action, slog.String("error", err.Error()))
		c.JSON(status, dto.ErrorResponse{Error: "Failed to " + action})
	default:
		logger.Warn("Request rejected", slog.String("action", action), slog.Int("status", status), slog.String("error", err.Error()))
		c.JSON(status, dto.ErrorResponse{Error: err.Error()})
	}
}

func respondBindError(c *gin.Context, err error, what string) {
	middleware.GetLoggerFromContext(c).Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + what + ": " + err.Error()})
}

// requireActor returns the authenticated actor or answers 401.
func requireActor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		middleware.GetLoggerFromContext(c).Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return domain.Actor{}, false
	}
	return actor, true
}
