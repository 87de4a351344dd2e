package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authledger/internal/health"
	"authledger/internal/identity/domain"
	"authledger/internal/identity/service"
	"authledger/internal/platform/guard"
	sessiondomain "authledger/internal/session/domain"
	userdomain "authledger/internal/user/domain"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at,omitempty"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

type handlers struct {
	auth    *service.AuthService
	checker *health.Checker
}

// bindCredentials reads the JSON body; a missing or malformed body is treated as missing fields.
func bindCredentials(c *gin.Context) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, domain.ErrMissingFields)
		return req, false
	}
	return req, true
}

func (h *handlers) register(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user registered", "user": newUserResponse(user)})
}

func (h *handlers) login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      res.Token,
		"expires_at": formatTime(res.ExpiresAt),
		"user":       userResponse{ID: res.UserID, Username: res.Username},
	})
}

func (h *handlers) logout(c *gin.Context) {
	token, ok := guard.TokenFrom(c.Request.Context())
	if !ok {
		abortWithError(c, domain.ErrUnauthenticated)
		return
	}
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *handlers) verify(c *gin.Context) {
	id, ok := guard.IdentityFrom(c.Request.Context())
	if !ok {
		abortWithError(c, domain.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user":       userResponse{ID: id.UserID, Username: id.Username},
		"expires_at": formatTime(id.ExpiresAt),
	})
}

func (h *handlers) me(c *gin.Context) {
	id, ok := guard.IdentityFrom(c.Request.Context())
	if !ok {
		abortWithError(c, domain.ErrUnauthenticated)
		return
	}
	user, err := h.auth.Me(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h *handlers) sessions(c *gin.Context) {
	id, ok := guard.IdentityFrom(c.Request.Context())
	if !ok {
		abortWithError(c, domain.ErrUnauthenticated)
		return
	}
	list, err := h.auth.Sessions(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, newSessionResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out, "count": len(out)})
}

func (h *handlers) healthCheck(c *gin.Context) {
	if h.checker == nil {
		c.JSON(http.StatusOK, health.Report{Status: health.StatusOK, CheckedAt: time.Now().UTC()})
		return
	}
	report := h.checker.Check(c.Request.Context())
	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

func newUserResponse(u *userdomain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: formatTime(u.CreatedAt)}
}

func newSessionResponse(s *sessiondomain.Session) sessionResponse {
	return sessionResponse{ID: s.ID, CreatedAt: formatTime(s.CreatedAt), ExpiresAt: formatTime(s.ExpiresAt)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
