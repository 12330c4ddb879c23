package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bitbucket.org/xxlgroup/orderhub_backend/models"
	"bitbucket.org/xxlgroup/orderhub_backend/utils"
)

// AuthMiddleware validates a Bearer token when present and attaches the
// claims to the request context. Requests without a token pass through;
// RequireUser gates the protected routes.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		token, err := utils.JwtValidate(auth[len(bearer):])
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		claim, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetUserIdInContext(c.Request.Context(), claim.ID)
		ctx = utils.SetUserRoleInContext(ctx, claim.Role)
		ctx = utils.SetIsAdminInContext(ctx, claim.Role == string(models.UserRoleAdmin))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireUser aborts with 401 unless AuthMiddleware put a user id in context.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the session role is one of roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := utils.GetUserRoleFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if models.UserRole(role) == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		c.Abort()
	}
}

// SessionUser loads the full user row for the authenticated request.
func SessionUser(ctx context.Context) (*models.User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return models.GetUser(ctx, userId)
}
