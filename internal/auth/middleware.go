package auth

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
)

const ctxActor = "auth_actor"

// Middleware validates Firebase ID tokens and places the resolved Actor
// in the Gin context. Roles and the parent billing account come from
// custom claims.
func Middleware(authClient *auth.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := authClient.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		actor := Actor{ID: decoded.UID}
		if email, ok := decoded.Claims["email"].(string); ok {
			actor.Email = email
		}
		if parent, ok := decoded.Claims["parent_account_id"].(string); ok {
			actor.ParentAccountID = parent
		}
		if raw, ok := decoded.Claims["roles"].([]interface{}); ok {
			for _, r := range raw {
				if role, ok := r.(string); ok {
					actor.Roles = append(actor.Roles, role)
				}
			}
		}

		c.Set(ctxActor, actor)
		c.Next()
	}
}

// RequireRoles aborts with 403 unless the actor holds at least one of
// the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).HasAnyRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom extracts the authenticated actor set by Middleware.
func ActorFrom(c *gin.Context) Actor {
	if v, ok := c.Get(ctxActor); ok {
		if a, ok := v.(Actor); ok {
			return a
		}
	}
	return Actor{}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
