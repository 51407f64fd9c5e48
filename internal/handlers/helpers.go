package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/middleware"
	"github.com/n1kh11p/blokt-sub000/internal/models"
)

// currentUser returns the user loaded by RequireAuth or answers 401.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return nil, false
	}
	return user, true
}

// bindJSON decodes the body or answers 400.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return false
	}
	return true
}

// pathID returns a UUID path parameter or answers 400.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, ok := middleware.ParamID(c, name)
	if !ok {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter. It answers 400 and
// returns ok=false when the value is malformed.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &id, true
}

// queryEnum parses an optional enum query parameter using valid.
func queryEnum[T ~string](c *gin.Context, name string, valid func(T) bool) (*T, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value := T(raw)
	if !valid(value) {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &value, true
}

// queryBool parses an optional boolean query parameter.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &value, true
}
