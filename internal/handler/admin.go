package handler

import (
	"context"
	"log/slog"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/model"
	"storefront/internal/service"
	"time"

	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	syncService    service.CatalogSyncService
	orderService   service.OrderService
	catalogService service.CatalogService
	profileService service.ProfileService
	syncTimeout    time.Duration
	log            *slog.Logger
}

func NewAdminHandler(
	syncService service.CatalogSyncService,
	orderService service.OrderService,
	catalogService service.CatalogService,
	profileService service.ProfileService,
	syncTimeout time.Duration,
	log *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		syncService:    syncService,
		orderService:   orderService,
		catalogService: catalogService,
		profileService: profileService,
		syncTimeout:    syncTimeout,
		log:            log,
	}
}

// SyncProducts runs detached from the request deadline, bounded by syncTimeout
// when it is set.
func (h *AdminHandler) SyncProducts(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if h.syncTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.syncTimeout)
		defer cancel()
	}

	result, err := h.syncService.Sync(ctx)
	if err != nil {
		h.log.Error("catalog sync failed", "request_id", requestID(c), "err", err)
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: dto.ErrorBody{Message: "Failed to sync products"}})
	}

	return c.JSON(http.StatusOK, dto.SyncResponse{
		Success: true,
		Synced:  result.Synced,
		Failed:  result.Failed,
	})
}

func (h *AdminHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	orders, err := h.orderService.ListAll(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, orders)
}

func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.orderService.UpdateStatus(ctx, orderID, model.OrderStatus(req.Status)); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	profiles, err := h.profileService.ListWithOrders(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profiles)
}

// PayCommission settles the commission of the order in the path.
func (h *AdminHandler) PayCommission(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.orderService.MarkCommissionPaid(ctx, orderID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product := productFromRequest(&req)
	if err := h.catalogService.Create(ctx, product); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product := productFromRequest(&req)
	product.ID = productID
	if err := h.catalogService.Update(ctx, product); err != nil {
		return err
	}

	updated, err := h.catalogService.Get(ctx, productID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) Analytics(c echo.Context) error {
	ctx := c.Request().Context()

	analytics, err := h.orderService.Analytics(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, analytics)
}

func productFromRequest(req *dto.ProductRequest) *model.Product {
	return &model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Features:    model.StringList(req.Features),
		ImageURL:    req.ImageURL,
		AltImage:    req.AltImage,
	}
}
