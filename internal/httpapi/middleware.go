package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"attendance-ledger/backend/internal/audit"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/rbac"
	"attendance-ledger/backend/internal/telemetry"
	telemetrydomain "attendance-ledger/backend/internal/telemetry/domain"
)

type ipKey struct{}

// withClientIP stores the echo-resolved client IP in the request context for the audit logger.
func withClientIP(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r := ctx.Request()
		ctx.SetRequest(r.WithContext(context.WithValue(r.Context(), ipKey{}, ctx.RealIP())))
		return next(ctx)
	}
}

func clientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ipKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// authMiddleware authenticates every request of the group and stores the caller in the request
// context.
func authMiddleware(tokens rbac.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			h := ctx.Request().Header
			caller, err := rbac.Authenticate(tokens, rbac.Credentials{
				Authorization: h.Get(echo.HeaderAuthorization),
				UserID:        h.Get(rbac.HeaderUserID),
				UserRole:      h.Get(rbac.HeaderUserRole),
			})
			if err != nil {
				return err
			}
			r := ctx.Request()
			ctx.SetRequest(r.WithContext(rbac.WithCaller(r.Context(), caller)))
			return next(ctx)
		}
	}
}

// audited records action on resource for the route's caller once the handler returns. The target
// is the :id path parameter; the metadata is the response status.
func audited(logger audit.Recorder, action, resource string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			if logger == nil {
				return err
			}
			reqCtx := ctx.Request().Context()
			caller, ok := rbac.CallerFrom(reqCtx)
			if !ok {
				return err
			}
			code := ctx.Response().Status
			if err != nil {
				code = apperr.HTTPStatus(err)
			}
			logger.Record(reqCtx, audit.Entry{
				ActorID:  caller.ID,
				Action:   action,
				Resource: resource,
				TargetID: ctx.Param("id"),
				Outcome:  strconv.Itoa(code),
			})
			return err
		}
	}
}

// requestEvents emits an http_request event per request except health probes.
func requestEvents(emitter telemetry.EventEmitter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if emitter == nil || ctx.Path() == "/healthz" {
				return err
			}
			code := ctx.Response().Status
			if err != nil {
				code = apperr.HTTPStatus(err)
				var herr *echo.HTTPError
				if errors.As(err, &herr) {
					code = herr.Code
				}
			}
			caller, _ := rbac.CallerFrom(ctx.Request().Context())
			telemetry.EmitAsync(emitter, telemetry.NewEvent(telemetrydomain.EventHTTPRequest, "http_middleware",
				ctx.Param("id"), caller.ID, time.Now(), map[string]string{
					"method":      ctx.Request().Method,
					"route":       ctx.Path(),
					"status_code": strconv.Itoa(code),
					"status_text": http.StatusText(code),
					"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
					"client_ip":   ctx.RealIP(),
				}))
			return err
		}
	}
}
