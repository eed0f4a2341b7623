package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"attendance-ledger/backend/internal/platform/apperr"
)

// appHTTPErrorHandler renders errors as {"error": REASON, "message": text}. Echo errors (unknown
// route, bad method, malformed body) keep their status code.
func appHTTPErrorHandler(err error, ctx echo.Context) {
	code := apperr.HTTPStatus(err)
	body := echo.Map{"error": apperr.Reason(err), "message": err.Error()}

	var herr *echo.HTTPError
	switch {
	case errors.As(err, &herr):
		code = herr.Code
		body = echo.Map{"error": http.StatusText(code), "message": herr.Message}
	case code == http.StatusInternalServerError:
		log.Printf("httpapi: %s %s: %v", ctx.Request().Method, ctx.Path(), err)
		body["message"] = http.StatusText(code)
	case code == http.StatusServiceUnavailable:
		log.Printf("httpapi: %s %s: %v", ctx.Request().Method, ctx.Path(), err)
		body["message"] = apperr.ErrStoreUnavailable.Error()
	}
	if ctx.Echo().Debug {
		body["message"] = err.Error()
	}

	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, body)
	}
	if err != nil {
		log.Printf("httpapi: writing error response: %v", err)
	}
}

// bind decodes the request into dst; malformed bodies are invalid input.
func bind(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			return apperr.Invalid("malformed request body")
		}
		return err
	}
	return nil
}
