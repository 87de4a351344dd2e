package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"authledger/internal/identity/domain"
)

// statusFor maps an authenticator error kind to an HTTP status and a fixed message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		return http.StatusBadRequest, domain.ErrMissingFields.Error()
	case errors.Is(err, domain.ErrDuplicateUsername):
		return http.StatusConflict, domain.ErrDuplicateUsername.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, domain.ErrUnauthenticated.Error()
	default:
		return http.StatusInternalServerError, domain.ErrInternal.Error()
	}
}

func abortWithError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="authledger"`)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
