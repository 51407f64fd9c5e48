package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
)

// UserLoader resolves the authenticated principal. It is satisfied by
// services.AuthService.
type UserLoader interface {
	GetUser(id uuid.UUID) (*models.User, error)
	ParseDeviceToken(raw string) (uuid.UUID, error)
}

// RequireAuth accepts either the session cookie or an
// "Authorization: Bearer <device token>" header and loads the user.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			userID, ok = bearerUserID(c, users)
		}
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := users.GetUser(userID)
		if err != nil {
			// the account was removed after the session was issued
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func sessionUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := sessions.Default(c).Get(constants.ContextKeyUserID).(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func bearerUserID(c *gin.Context, users UserLoader) (uuid.UUID, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return uuid.Nil, false
	}
	id, err := users.ParseDeviceToken(strings.TrimSpace(token))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// GetUser retrieves the authenticated user loaded by RequireAuth.
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}
