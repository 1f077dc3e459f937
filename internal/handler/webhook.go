package handler

import (
	"io"
	"log/slog"
	"net/http"
	"storefront/internal/dto"
	"storefront/internal/service"
	"storefront/internal/webhook"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	fulfillmentService service.FulfillmentService
	log                *slog.Logger
}

func NewWebhookHandler(fulfillmentService service.FulfillmentService, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		fulfillmentService: fulfillmentService,
		log:                log,
	}
}

// StripeWebhook acknowledges only after the order is committed. Any failure
// answers 400 so the provider redelivers.
func (h *WebhookHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return h.fail(c, err)
	}

	result, err := h.fulfillmentService.HandleWebhook(ctx, body, c.Request().Header.Get(webhook.SignatureHeader))
	if err != nil {
		return h.fail(c, err)
	}

	h.log.Info("webhook handled",
		"request_id", requestID(c),
		"event_id", result.EventID,
		"session_id", result.SessionID,
		"outcome", result.Outcome,
	)
	return c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *WebhookHandler) fail(c echo.Context, err error) error {
	h.log.Warn("webhook rejected", "request_id", requestID(c), "err", err)
	return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorBody{Message: "Webhook handler failed"}})
}
