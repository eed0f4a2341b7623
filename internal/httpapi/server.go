// Package httpapi serves the session and submission operations as a JSON API for browser clients.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"attendance-ledger/backend/internal/audit"
	audithandler "attendance-ledger/backend/internal/audit/handler"
	auditrepo "attendance-ledger/backend/internal/audit/repository"
	devicehandler "attendance-ledger/backend/internal/device/handler"
	healthhandler "attendance-ledger/backend/internal/health/handler"
	"attendance-ledger/backend/internal/platform/clock"
	"attendance-ledger/backend/internal/platform/rbac"
	sessionhandler "attendance-ledger/backend/internal/session/handler"
	submissionhandler "attendance-ledger/backend/internal/submission/handler"
	"attendance-ledger/backend/internal/telemetry"
)

// Options configures the HTTP server.
type Options struct {
	Address        string
	DisableReqLogs bool
	Debug          bool

	Sessions    *sessionhandler.API
	Submissions *submissionhandler.API
	// Devices and Audit back the admin routes; either may be nil.
	Devices *devicehandler.Server
	Audit   *audithandler.Server
	Health  *healthhandler.Server

	// Tokens verifies bearer tokens. If nil, callers are taken from the x-user-id/x-user-role headers.
	Tokens rbac.TokenValidator
	// AuditRepo records owner operations. If nil, nothing is audited.
	AuditRepo auditrepo.Repository
	// Events receives one http_request event per request. May be nil.
	Events telemetry.EventEmitter
	Clock  clock.Clock
}

// Server is the echo application.
type Server struct {
	opts  *Options
	app   *echo.Echo
	audit audit.Recorder
}

// NewServer returns a configured Server.
func NewServer(opts *Options) *Server {
	s := &Server{opts: opts, app: echo.New()}
	if opts.AuditRepo != nil {
		s.audit = audit.NewLogger(opts.AuditRepo, clientIP, opts.Clock)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = s.opts.Debug
	s.app.HTTPErrorHandler = appHTTPErrorHandler

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(middleware.Recover())
	s.app.Use(withClientIP, requestEvents(s.opts.Events))

	s.app.GET("/healthz", s.health)

	v1 := s.app.Group("/v1", authMiddleware(s.opts.Tokens))
	if s.opts.Sessions != nil {
		registerSessionAPI(v1, s.opts.Sessions, s.audit)
	}
	if s.opts.Submissions != nil {
		registerSubmissionAPI(v1, s.opts.Submissions, s.audit)
	}
	registerAdminAPI(v1.Group("/admin"), s.opts.Devices, s.opts.Audit)
}

// Start serves on the configured address until Stop. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	return s.app.Start(s.opts.Address)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ServeHTTP implements http.Handler (used by tests).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) health(ctx echo.Context) error {
	health := s.opts.Health
	if health == nil {
		health = healthhandler.NewServer(nil, nil)
	}
	resp := health.Check(ctx.Request().Context())
	code := http.StatusOK
	if resp.Status != healthhandler.StatusServing {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, resp)
}
