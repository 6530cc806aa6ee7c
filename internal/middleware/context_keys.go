package middleware

import (
	"context"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// actorKey is the key used to store the authenticated actor in the request context.
const actorKey = contextKey("actor")

// WithActor returns a copy of ctx carrying the authenticated actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromCtx retrieves the authenticated actor from a standard context.
func ActorFromCtx(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// GetActorFromContext retrieves the authenticated actor from the Gin context.
// It returns the actor and a boolean indicating if it was found.
func GetActorFromContext(c *gin.Context) (domain.Actor, bool) {
	if actorVal, exists := c.Get(string(actorKey)); exists {
		actor, ok := actorVal.(domain.Actor)
		return actor, ok
	}
	return ActorFromCtx(c.Request.Context())
}
