package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	audithandler "attendance-ledger/backend/internal/audit/handler"
	devicehandler "attendance-ledger/backend/internal/device/handler"
	"attendance-ledger/backend/internal/platform/apperr"
	"attendance-ledger/backend/internal/platform/validate"
)

type adminAPI struct {
	devices *devicehandler.Server
	audit   *audithandler.Server
}

func registerAdminAPI(g *echo.Group, devices *devicehandler.Server, auditSrv *audithandler.Server) {
	h := adminAPI{devices: devices, audit: auditSrv}
	if devices != nil {
		g.GET("/bindings/:identity", h.binding)
	}
	if auditSrv != nil {
		g.GET("/audit-logs", h.auditLogs)
	}
}

func (h *adminAPI) binding(ctx echo.Context) error {
	req := devicehandler.GetBindingRequest{Identity: ctx.Param("identity")}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.devices.GetBinding(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

// auditLogs serves GET /v1/admin/audit-logs?actor_id=&limit=&offset=.
func (h *adminAPI) auditLogs(ctx echo.Context) error {
	limit, err := queryInt32(ctx, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt32(ctx, "offset")
	if err != nil {
		return err
	}
	req := audithandler.ListRequest{ActorID: ctx.QueryParam("actor_id"), Limit: limit, Offset: offset}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.audit.List(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func queryInt32(ctx echo.Context, name string) (int32, error) {
	v := ctx.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, apperr.Invalid(name + " must be an integer")
	}
	return int32(n), nil
}
