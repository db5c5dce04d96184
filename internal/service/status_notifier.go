package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/events"
)

// Origenes de un cambio de estado.
const (
	SourceRegister  = "register_and_subscribe"
	SourceSubscribe = "subscribe"
	SourceCancel    = "cancel"
	SourceWebhook   = "webhook"
)

// StatusObserver recibe cada transicion persistida (lo implementa metrics.Metrics).
type StatusObserver interface {
	ObserveStatusChange(source, status string)
}

// StatusNotifier difunde las transiciones ya guardadas. Los fallos se registran y no
// afectan a la operacion que las origino.
type StatusNotifier struct {
	logger    *zap.Logger
	publisher events.Publisher
	observer  StatusObserver
}

func NewStatusNotifier(logger *zap.Logger, publisher events.Publisher, observer StatusObserver) *StatusNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &StatusNotifier{logger: logger, publisher: publisher, observer: observer}
}

func (n *StatusNotifier) Notify(ctx context.Context, user domain.User, previous, source string) {
	if n == nil {
		return
	}
	n.logger.Info("subscription status changed",
		zap.String("user_id", user.ID),
		zap.String("previous_status", previous),
		zap.String("status", user.SubscriptionStatus),
		zap.String("source", source),
	)
	if n.observer != nil {
		n.observer.ObserveStatusChange(source, user.SubscriptionStatus)
	}
	change := events.StatusChange{
		UserID:         user.ID,
		Email:          user.Email,
		CustomerID:     user.CustomerID,
		SubscriptionID: user.SubscriptionID,
		PreviousStatus: previous,
		Status:         user.SubscriptionStatus,
		Source:         source,
		OccurredAt:     time.Now().UTC(),
	}
	if err := n.publisher.PublishStatusChange(ctx, change); err != nil {
		n.logger.Warn("publish status change failed", zap.Error(err), zap.String("user_id", user.ID))
	}
}
