package handler

import (
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type CouponHandler struct {
	couponService service.CouponService
}

func NewCouponHandler(couponService service.CouponService) *CouponHandler {
	return &CouponHandler{
		couponService: couponService,
	}
}

// ValidateCoupon answers 200 with the validator result, valid or not.
func (h *CouponHandler) ValidateCoupon(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ValidateCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.couponService.Validate(ctx, req.Code, middleware.UserID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
