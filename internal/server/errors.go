// internal/server/errors.go
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rovshanmuradov/launchpad/internal/program"
)

// NotFoundJSON renders every unhandled error as an ErrorResponse.
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg, Code: he.Code})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps a program error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, program.ErrBondingCurveNotFound) {
		return http.StatusNotFound
	}
	switch program.KindOf(err) {
	case program.KindAuthorization:
		return http.StatusForbidden
	case program.KindState:
		return http.StatusConflict
	case program.KindConfig:
		return http.StatusPreconditionFailed
	case program.KindValidation:
		return http.StatusBadRequest
	case program.KindArithmetic:
		return http.StatusUnprocessableEntity
	case program.KindResource:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
