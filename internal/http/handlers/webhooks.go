package handlers

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ChandanVasu/ShopGold-sub000/internal/http/middleware"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

type WebhookHandler struct {
	Logger  *slog.Logger
	Service *payments.Service
}

func NewWebhookHandler(logger *slog.Logger, svc *payments.Service) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Service: svc}
}

// POST /payment/:gateway/webhook
// The raw body goes to the adapter untouched: several schemes sign the exact
// bytes/form-encoding as sent, not a re-serialized object.
func (h *WebhookHandler) Handle(c *gin.Context) {
	gw, ok := payments.ParseGateway(c.Param("gateway"))
	if !ok {
		middleware.Fail(c, apperr.InvalidErr("Unknown payment gateway.", nil))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid body.", nil))
		return
	}

	ack, err := h.Service.HandleCallback(c.Request.Context(), gw, body, c.Request.Header)
	if err != nil {
		// Only signature/configuration failures reach the provider as errors.
		middleware.Fail(c, err)
		return
	}

	c.Data(ack.Status, ack.ContentType, []byte(ack.Body))
}
