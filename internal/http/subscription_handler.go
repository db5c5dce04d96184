package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/service"
)

// SubscriptionHandler expone las acciones de suscripcion.
type SubscriptionHandler struct {
	logger  *zap.Logger
	subServ *service.SubscriptionService
	jwtServ *service.JWTService
}

func NewSubscriptionHandler(logger *zap.Logger, subServ *service.SubscriptionService, jwtServ *service.JWTService) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:  logger,
		subServ: subServ,
		jwtServ: jwtServ,
	}
}

// RegisterAndSubscribe maneja POST /register-and-subscribe.
func (h *SubscriptionHandler) RegisterAndSubscribe(c *gin.Context) {
	var req struct {
		Email           string `json:"email" binding:"required"`
		Password        string `json:"password" binding:"required"`
		PaymentMethodID string `json:"paymentMethodId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register-and-subscribe request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, password, and payment method required"})
		return
	}

	res, err := h.subServ.RegisterAndSubscribe(c.Request.Context(), service.RegisterAndSubscribeInput{
		Email:           req.Email,
		Password:        req.Password,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		respondError(c, h.logger, "register and subscribe failed", err)
		return
	}

	token, err := h.jwtServ.IssueAccessToken(res.User)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"token":          token.Token,
		"subscriptionId": res.SubscriptionID,
		"clientSecret":   res.ClientSecret,
		"user":           userView(res.User),
	})
}

// Subscribe maneja POST /subscribe.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		PaymentMethodID string `json:"paymentMethodId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid subscribe request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment method ID is required"})
		return
	}

	res, err := h.subServ.Subscribe(c.Request.Context(), claims.UserID, req.PaymentMethodID)
	if err != nil {
		respondError(c, h.logger, "subscribe failed", err)
		return
	}

	switch {
	case res.RequiresAction:
		c.JSON(http.StatusOK, gin.H{
			"success":                      false,
			"requires_action":              true,
			"payment_intent_client_secret": res.ClientSecret,
			"subscriptionId":               res.SubscriptionID,
		})
	case res.Status == domain.StatusPending:
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"status":         res.Status,
			"subscriptionId": res.SubscriptionID,
			"clientSecret":   res.ClientSecret,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"status":         res.Status,
			"subscriptionId": res.SubscriptionID,
		})
	}
}

// CheckSubscription maneja GET /check-subscription.
func (h *SubscriptionHandler) CheckSubscription(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	subscribed, err := h.subServ.CheckSubscription(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, h.logger, "check subscription failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isSubscribed": subscribed})
}

// CancelSubscription maneja POST /cancel-subscription.
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if err := h.subServ.CancelSubscription(c.Request.Context(), claims.UserID); err != nil {
		respondError(c, h.logger, "cancel subscription failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Subscription canceled successfully."})
}
