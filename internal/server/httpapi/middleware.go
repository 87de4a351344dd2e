package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authledger/internal/identity/domain"
	"authledger/internal/platform/guard"
)

// Authenticate returns gin middleware that admits only requests carrying a valid bearer
// token. The rest of the chain runs as a guard.Protect operation, so handlers find the
// identity and token in the request context.
func Authenticate(g *guard.Guard) gin.HandlerFunc {
	next := guard.Protect(g, func(ctx context.Context, _ *domain.Identity, c *gin.Context) (struct{}, error) {
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		return struct{}{}, nil
	})
	return func(c *gin.Context) {
		if _, err := next(c.Request.Context(), c.GetHeader("Authorization"), c); err != nil {
			abortWithError(c, err)
		}
	}
}

// AccessLog logs one line per request. Paths in skip are not logged.
func AccessLog(logger *zap.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if skipped[path] {
			return
		}
		if path == "" {
			path = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if userID := guard.UserID(c.Request.Context()); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
		} else {
			logger.Info("http request", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 with the fixed internal error body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("error", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", c.Request.Method),
					zap.String("path", c.FullPath()),
				)
				abortWithError(c, errPanic)
			}
		}()
		c.Next()
	}
}
