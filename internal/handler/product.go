package handler

import (
	"net/http"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	catalogService service.CatalogService
}

func NewProductHandler(catalogService service.CatalogService) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
	}
}

func (h *ProductHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	products, err := h.catalogService.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.catalogService.Get(ctx, productID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, product)
}
