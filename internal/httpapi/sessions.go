package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"attendance-ledger/backend/internal/audit"
	"attendance-ledger/backend/internal/platform/validate"
	sessionhandler "attendance-ledger/backend/internal/session/handler"
	submissionhandler "attendance-ledger/backend/internal/submission/handler"
)

type sessionAPI struct {
	api *sessionhandler.API
}

func registerSessionAPI(g *echo.Group, api *sessionhandler.API, logger audit.Recorder) {
	h := sessionAPI{api: api}

	sg := g.Group("/sessions")
	sg.POST("", h.create, audited(logger, "create", "session"))
	sg.GET("", h.list)
	sg.DELETE("", h.destroyMultiple, audited(logger, "delete", "session"))
	sg.DELETE("/all", h.clearAll, audited(logger, "clear_all", "session"))
	sg.POST("/:id/stop", h.stop, audited(logger, "stop", "session"))
}

func (h *sessionAPI) create(ctx echo.Context) error {
	var req sessionhandler.CreateRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.api.Create(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (h *sessionAPI) stop(ctx echo.Context) error {
	req := sessionhandler.SessionIDRequest{SessionID: ctx.Param("id")}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.api.Stop(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (h *sessionAPI) list(ctx echo.Context) error {
	resp, err := h.api.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (h *sessionAPI) destroyMultiple(ctx echo.Context) error {
	var req sessionhandler.DeleteRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.api.Delete(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (h *sessionAPI) clearAll(ctx echo.Context) error {
	resp, err := h.api.ClearAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

type submissionAPI struct {
	api *submissionhandler.API
}

func registerSubmissionAPI(g *echo.Group, api *submissionhandler.API, logger audit.Recorder) {
	h := submissionAPI{api: api}
	g.POST("/submissions", h.submit)
	g.GET("/sessions/:id/submissions", h.list, audited(logger, "list", "submission"))
}

func (h *submissionAPI) submit(ctx echo.Context) error {
	var req submissionhandler.SubmitRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.api.Submit(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (h *submissionAPI) list(ctx echo.Context) error {
	req := submissionhandler.ListRequest{SessionID: ctx.Param("id")}
	if err := validate.Struct(req); err != nil {
		return err
	}
	resp, err := h.api.List(ctx.Request().Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}
