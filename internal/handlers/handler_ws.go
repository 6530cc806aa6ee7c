package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/invoice_review_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// WebsocketServer accepts a push connection for an authenticated user.
type WebsocketServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string) error
}

// registerWebsocketRoute mounts GET /ws. Browsers pass the token as ?access_token=.
func registerWebsocketRoute(rg *gin.RouterGroup, hub WebsocketServer) {
	rg.GET("/ws", func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if err := hub.Serve(c.Writer, c.Request, actor.ID); err != nil {
			// The upgrader has already written the HTTP error.
			middleware.GetLoggerFromContext(c).Warn("Websocket connection refused", slog.String("error", err.Error()))
		}
	})
}
