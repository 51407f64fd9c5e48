package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
)

func paramKey(name string) string {
	return "param_uuid:" + name
}

// RequireUUIDParams parses the named path parameters as UUIDs and stores them
// for ParamID. A malformed id is a 400.
func RequireUUIDParams(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, name := range names {
			id, err := uuid.Parse(c.Param(name))
			if err != nil {
				apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
				return
			}
			c.Set(paramKey(name), id)
		}
		c.Next()
	}
}

// ParamID returns a path parameter parsed by RequireUUIDParams, falling back
// to parsing it directly.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	if value, ok := c.Get(paramKey(name)); ok {
		id, ok := value.(uuid.UUID)
		return id, ok
	}
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
