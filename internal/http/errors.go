package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"billing-api/internal/payment"
	"billing-api/internal/service"
)

// errorResponse traduce un error de servicio o del procesador a status y cuerpo JSON.
func errorResponse(err error) (int, gin.H) {
	var unexpected *service.UnexpectedStatusError
	var procErr *payment.Error
	errors.As(err, &procErr)

	switch {
	case errors.As(err, &unexpected):
		return http.StatusBadRequest, gin.H{
			"success":        false,
			"error":          "Unexpected subscription status: " + unexpected.Status,
			"subscriptionId": unexpected.SubscriptionID,
		}
	case errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest, gin.H{"error": "Email and password required"}
	case errors.Is(err, service.ErrPaymentMethodRequired):
		return http.StatusBadRequest, gin.H{"error": "Payment method ID is required"}
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, gin.H{"error": "Email already registered"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, gin.H{"error": "Invalid email or password"}
	case errors.Is(err, service.ErrJWTInvalid), errors.Is(err, service.ErrJWTExpired):
		return http.StatusUnauthorized, gin.H{"error": "invalid token"}
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, gin.H{"error": "User not found"}
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests, gin.H{"error": "Too many login attempts. Please try again later"}
	case errors.Is(err, service.ErrPriceNotConfigured):
		return http.StatusInternalServerError, gin.H{"error": "Subscription price not configured"}
	case errors.Is(err, service.ErrPaymentMethodInvalid):
		return http.StatusBadRequest, gin.H{"error": "Invalid payment method", "details": processorMessage(procErr)}
	case errors.Is(err, payment.ErrCardDeclined):
		body := gin.H{"error": "Payment method declined"}
		if procErr != nil {
			body["code"] = procErr.Code
			body["param"] = procErr.Param
			body["message"] = procErr.Message
		}
		return http.StatusBadRequest, body
	case errors.Is(err, payment.ErrRateLimited):
		return http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Please try again later"}
	case errors.Is(err, payment.ErrInvalidRequest):
		return http.StatusBadRequest, gin.H{"error": "Invalid parameters: " + processorMessage(procErr)}
	case errors.Is(err, payment.ErrAuthentication):
		return http.StatusInternalServerError, gin.H{"error": "Authentication with payment processor failed"}
	case errors.Is(err, payment.ErrUnreachable):
		return http.StatusServiceUnavailable, gin.H{"error": "Network error. Please try again"}
	case errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusBadRequest, gin.H{"error": "Invalid signature"}
	case errors.Is(err, payment.ErrInvalidPayload):
		return http.StatusBadRequest, gin.H{"error": "Invalid payload"}
	case errors.Is(err, payment.ErrProcessor):
		return http.StatusInternalServerError, gin.H{"error": "Payment processing error: " + processorMessage(procErr)}
	default:
		return http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred. Please try again"}
	}
}

func processorMessage(err *payment.Error) string {
	if err == nil {
		return ""
	}
	return err.Message
}

// respondError escribe la respuesta de error y la registra; 5xx como error, el resto como warn.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status, body := errorResponse(err)
	fields := []zap.Field{zap.Error(err), zap.Int("status", status)}
	if status >= http.StatusInternalServerError {
		logger.Error(msg, fields...)
	} else {
		logger.Warn(msg, fields...)
	}
	c.JSON(status, body)
}
