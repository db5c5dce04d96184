package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-api/internal/service"
)

const (
	signatureHeader     = "Stripe-Signature"
	maxWebhookBodyBytes = 64 << 10
)

// WebhookHandler recibe las notificaciones firmadas del procesador.
type WebhookHandler struct {
	logger   *zap.Logger
	webhooks *service.WebhookService
}

func NewWebhookHandler(logger *zap.Logger, webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{logger: logger, webhooks: webhooks}
}

// Handle maneja POST /webhook. El cuerpo se lee crudo porque la firma cubre los bytes exactos.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn("read webhook body failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if err := h.webhooks.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader)); err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook handling failed", zap.Error(err))
			body = gin.H{"error": "Webhook handling error"}
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
