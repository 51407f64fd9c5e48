package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
)

// RequirePermission rejects users whose role does not grant perm.
// Must run after RequireAuth.
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if !user.Role.Can(perm) {
			apierrors.InsufficientPermissions(c, "")
			return
		}
		c.Next()
	}
}
