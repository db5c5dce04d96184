package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/payment"
	"billing-api/internal/repository"
)

// Resultado de procesar un webhook, usado en logs y metricas.
const (
	WebhookApplied         = "applied"
	WebhookIgnored         = "ignored"
	WebhookUnknownCustomer = "unknown_customer"
	WebhookRejected        = "rejected"
)

// WebhookObserver cuenta los eventos recibidos (lo implementa metrics.Metrics).
type WebhookObserver interface {
	ObserveWebhookEvent(eventType, result string)
}

// WebhookService aplica los eventos del procesador sobre las cuentas locales.
type WebhookService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	processor payment.Processor
	notifier  *StatusNotifier
	observer  WebhookObserver
}

func NewWebhookService(logger *zap.Logger, users repository.UserRepository, processor payment.Processor, notifier *StatusNotifier, observer WebhookObserver) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		logger:    logger,
		users:     users,
		processor: processor,
		notifier:  notifier,
		observer:  observer,
	}
}

// HandleWebhook verifica el evento y actualiza el estado de la cuenta del cliente.
// Eventos de tipo desconocido o de clientes que no existen se aceptan sin cambios.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		s.observe("unverified", WebhookRejected)
		s.logger.Warn("webhook rejected", zap.Error(err))
		return err
	}

	result, err := s.apply(ctx, evt)
	if err != nil {
		s.observe(evt.Type, "error")
		s.logger.Error("webhook apply failed",
			zap.Error(err),
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
		)
		return err
	}
	s.observe(evt.Type, result)
	s.logger.Info("webhook processed",
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("result", result),
	)
	return nil
}

func (s *WebhookService) apply(ctx context.Context, evt payment.Event) (string, error) {
	status, ok := statusForEvent(evt)
	if !ok {
		return WebhookIgnored, nil
	}
	if evt.CustomerID == "" || evt.CustomerID == domain.NoCustomerID {
		return WebhookIgnored, nil
	}

	user, err := s.users.GetByCustomerID(ctx, evt.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WebhookUnknownCustomer, nil
		}
		return "", fmt.Errorf("lookup customer %s: %w", evt.CustomerID, err)
	}

	previous := user.SubscriptionStatus
	user.SubscriptionStatus = status
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("persist webhook status: %w", err)
	}
	s.notifier.Notify(ctx, user, previous, SourceWebhook)
	return WebhookApplied, nil
}

// statusForEvent traduce el tipo de evento al estado local. customer.subscription.updated
// copia el estado del procesador tal cual; sin estado el evento no se aplica.
func statusForEvent(evt payment.Event) (string, bool) {
	switch evt.Type {
	case payment.EventInvoicePaymentSucceeded:
		return domain.StatusActive, true
	case payment.EventSubscriptionDeleted:
		return domain.StatusCanceled, true
	case payment.EventInvoicePaymentFailed:
		return domain.StatusPaymentFailed, true
	case payment.EventSubscriptionUpdated:
		return evt.Status, evt.Status != ""
	default:
		return "", false
	}
}

func (s *WebhookService) observe(eventType, result string) {
	if s.observer != nil {
		s.observer.ObserveWebhookEvent(eventType, result)
	}
}
