package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/invoice_review_app/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims are the JWT claims issued by the auth collaborator.
// The subject is the actor ID.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a Gin middleware handler that validates JWT tokens
// and stores the resulting domain.Actor in the request context.
func AuthMiddleware(jwtSecret, issuer string) gin.HandlerFunc {
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(issuer))
	}

	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		tokenString, ok := bearerToken(c)
		if !ok {
			logger.Warn("Authorization header missing or malformed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims := &ActorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, parserOpts...)
		if err != nil {
			logger.Warn("Invalid token", slog.String("error", err.Error()))
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
				msg = "Token not valid yet"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		role := domain.Role(claims.Role)
		if !token.Valid || claims.Subject == "" || !role.IsValid() {
			logger.Warn("Invalid token claims", slog.String("role", claims.Role))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		actor := domain.Actor{ID: claims.Subject, Role: role}
		enrichedLogger := logger.With(slog.String("user_id", actor.ID), slog.String("role", string(actor.Role)))

		ctx := WithActor(c.Request.Context(), actor)
		ctx = WithLogger(ctx, enrichedLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(actorKey), actor)
		c.Set(string(loggerKey), enrichedLogger)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated actor has one of roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		GetLoggerFromContext(c).Warn("Role not permitted", slog.String("role", string(actor.Role)))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// bearerToken extracts the token from the Authorization header, falling back to the
// access_token query parameter for websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query("access_token"); q != "" {
			return q, true
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
