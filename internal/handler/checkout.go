package handler

import (
	"errors"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

const msgCheckoutFailed = "Error creating checkout session"

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items must be a non-empty array")
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "items must not contain null")
		}
		items = append(items, service.CheckoutItem{
			ProductID:  item.ProductID,
			UnitAmount: item.PriceData.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	result, err := h.checkoutService.CreateSession(ctx, &service.CheckoutRequest{
		UserID:       middleware.UserID(c),
		Items:        items,
		CouponCode:   req.CouponCode,
		DiscountRate: req.DiscountAmount,
	})
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if he := toHTTPError(err); he.Code < http.StatusInternalServerError {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, msgCheckoutFailed).SetInternal(err)
	}

	return c.JSON(http.StatusOK, dto.CheckoutResponse{SessionURL: result.SessionURL})
}
