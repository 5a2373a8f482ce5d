package middleware

import (
	"log"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/umsebenzi/internal/errors"
)

// RecoveryWithLog turns a panic into a 500 response and logs the stack
func RecoveryWithLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered [request_id=%s]: %v\n%s", GetRequestID(c), err, debug.Stack())
				apierrors.InternalError(c, "")
				c.Abort()
			}
		}()
		c.Next()
	}
}
