// Package httpapi is the REST adapter of the auth service, built on gin. It shares the
// authenticator and the access guard with the gRPC transport.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"authledger/internal/health"
	"authledger/internal/identity/service"
	"authledger/internal/platform/guard"
)

var errPanic = errors.New("handler panic")

// Deps holds the dependencies of the HTTP routes.
type Deps struct {
	// Auth is the authenticator. Required.
	Auth *service.AuthService
	// Guard protects the authenticated routes. Required.
	Guard *guard.Guard
	// Health backs GET /api/health. If nil, the endpoint always reports ok.
	Health *health.Checker
	// Metrics records request metrics. If nil, requests are not measured.
	Metrics *Metrics
	// Gatherer is served on GET /metrics. If nil, the route is not registered.
	Gatherer prometheus.Gatherer
	// Logger is used for the access log and internal errors. Nil discards output.
	Logger *zap.Logger
}

// NewRouter returns a gin engine with all routes registered.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(Recovery(logger), AccessLog(logger, "/api/health", "/metrics"))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}

	h := &handlers{auth: deps.Auth, checker: deps.Health}
	api := r.Group("/api")
	api.GET("/health", h.healthCheck)

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)

	protected := auth.Group("", Authenticate(deps.Guard))
	protected.POST("/logout", h.logout)
	protected.GET("/verify", h.verify)
	protected.GET("/me", h.me)
	protected.GET("/sessions", h.sessions)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// NewServer wraps handler in an *http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
