package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/service"
	"strconv"

	"github.com/labstack/echo/v4"
)

const msgInternal = "Internal server error"

// toHTTPError maps service errors onto status codes. Unknown errors are 500.
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var rejected *service.CouponRejectedError
	if errors.As(err, &rejected) {
		return echo.NewHTTPError(http.StatusBadRequest, rejected.Message).SetInternal(err)
	}

	switch {
	case errors.Is(err, service.ErrInvalidItems),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrCouponInvalid),
		errors.Is(err, service.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, service.ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated").SetInternal(err)
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden").SetInternal(err)
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, service.ErrProfileExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error()).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, msgInternal).SetInternal(err)
}

// NewHTTPErrorHandler renders every error as {"error":{"message":...}}.
// Unmapped errors never reach the body; the cause is only logged.
func NewHTTPErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := toHTTPError(err)
		if he.Code >= http.StatusInternalServerError {
			log.Error("request failed",
				"request_id", requestID(c),
				"method", c.Request().Method,
				"path", c.Path(),
				"status", he.Code,
				"err", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, dto.ErrorResponse{Error: dto.ErrorBody{Message: fmt.Sprint(he.Message)}})
		}
		if writeErr != nil {
			log.Error("write error response", "request_id", requestID(c), "err", writeErr)
		}
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}
