package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/umsebenzi/internal/constants"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
)

// RequireAuth checks if the user is authenticated via session and stores the
// user id in the context as a uint64
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	value, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(value)
}

// toUserID accepts the integer shapes a session backend may hand back
func toUserID(value any) (uint64, bool) {
	var id int64
	switch v := value.(type) {
	case uint64:
		return v, v > 0
	case uint:
		return uint64(v), v > 0
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		id = int64(v)
	default:
		return 0, false
	}
	if id <= 0 {
		return 0, false
	}
	return uint64(id), true
}
