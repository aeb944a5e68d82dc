// README: Firebase ID token middleware exposing the caller's uid and role.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guetchou/BantuDelice-sub001/internal/infra"
)

const (
	callerUIDKey  = "caller_uid"
	callerRoleKey = "caller_role"

	RolePassenger = "passenger"
	RoleDriver    = "driver"
)

// Auth rejects requests without a valid "Bearer <Firebase ID token>" header.
// Tokens without a role claim are treated as passengers.
func Auth(verifier infra.CallerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		caller, err := verifier.VerifyCaller(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || caller.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role := caller.Role
		if role == "" {
			role = RolePassenger
		}
		c.Set(callerUIDKey, caller.UID)
		c.Set(callerRoleKey, role)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(callerRoleKey)
}

// RequireRole lets only callers with role through.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: " + role + " role required"})
			return
		}
		c.Next()
	}
}
