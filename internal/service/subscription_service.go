package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/payment"
	"billing-api/internal/repository"
)

var (
	ErrPaymentMethodRequired = errors.New("payment method is required")
	ErrPaymentMethodInvalid  = errors.New("invalid payment method")
	ErrPriceNotConfigured    = errors.New("subscription price not configured")
)

// UnexpectedStatusError indica que el procesador devolvio un estado que no sabemos tratar.
// No se guarda nada localmente.
type UnexpectedStatusError struct {
	Status         string
	SubscriptionID string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected subscription status: %s", e.Status)
}

// SubscriptionConfig agrupa los planes de precio usados al suscribir.
type SubscriptionConfig struct {
	PriceID         string
	RegisterPriceID string
}

// SubscriptionService aplica las acciones de suscripcion iniciadas por el usuario.
type SubscriptionService struct {
	logger    *zap.Logger
	users     repository.UserRepository
	processor payment.Processor
	notifier  *StatusNotifier
	cfg       SubscriptionConfig
}

func NewSubscriptionService(logger *zap.Logger, users repository.UserRepository, processor payment.Processor, notifier *StatusNotifier, cfg SubscriptionConfig) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RegisterPriceID == "" {
		cfg.RegisterPriceID = cfg.PriceID
	}
	return &SubscriptionService{
		logger:    logger,
		users:     users,
		processor: processor,
		notifier:  notifier,
		cfg:       cfg,
	}
}

type RegisterAndSubscribeInput struct {
	Email           string
	Password        string
	PaymentMethodID string
}

type RegisterAndSubscribeResult struct {
	User           domain.User
	SubscriptionID string
	ClientSecret   string
}

// RegisterAndSubscribe crea cliente, metodo de pago y suscripcion antes de guardar la cuenta.
// La cuenta queda "active" sin esperar el resultado del cobro.
func (s *SubscriptionService) RegisterAndSubscribe(ctx context.Context, in RegisterAndSubscribeInput) (RegisterAndSubscribeResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return RegisterAndSubscribeResult{}, ErrMissingFields
	}
	if in.PaymentMethodID == "" {
		return RegisterAndSubscribeResult{}, ErrPaymentMethodRequired
	}
	if err := ensureEmailAvailable(ctx, s.users, email); err != nil {
		return RegisterAndSubscribeResult{}, err
	}
	if s.cfg.RegisterPriceID == "" {
		return RegisterAndSubscribeResult{}, ErrPriceNotConfigured
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return RegisterAndSubscribeResult{}, err
	}

	customerID, err := s.processor.CreateCustomer(ctx, email)
	if err != nil {
		return RegisterAndSubscribeResult{}, err
	}
	if err := s.setupPaymentMethod(ctx, customerID, in.PaymentMethodID); err != nil {
		return RegisterAndSubscribeResult{}, err
	}
	sub, err := s.processor.CreateSubscription(ctx, payment.SubscriptionParams{
		CustomerID: customerID,
		PriceID:    s.cfg.RegisterPriceID,
	})
	if err != nil {
		return RegisterAndSubscribeResult{}, err
	}

	user := newUser(email, hash, domain.StatusActive)
	user.CustomerID = customerID
	user.SubscriptionID = sub.ID
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("persist subscribed user failed",
			zap.Error(err),
			zap.String("customer_id", customerID),
			zap.String("subscription_id", sub.ID),
		)
		return RegisterAndSubscribeResult{}, mapCreateError(err)
	}
	s.notifier.Notify(ctx, user, "", SourceRegister)

	return RegisterAndSubscribeResult{
		User:           user,
		SubscriptionID: sub.ID,
		ClientSecret:   sub.ClientSecret,
	}, nil
}

type SubscribeResult struct {
	Status         string
	SubscriptionID string
	ClientSecret   string
	RequiresAction bool
}

// Subscribe suscribe una cuenta existente con pago diferido.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, paymentMethodID string) (SubscribeResult, error) {
	if paymentMethodID == "" {
		return SubscribeResult{}, ErrPaymentMethodRequired
	}
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return SubscribeResult{}, err
	}
	if s.cfg.PriceID == "" {
		return SubscribeResult{}, ErrPriceNotConfigured
	}

	customerID, err := s.findOrCreateCustomer(ctx, user.Email)
	if err != nil {
		return SubscribeResult{}, err
	}
	if err := s.setupPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return SubscribeResult{}, err
	}
	sub, err := s.processor.CreateSubscription(ctx, payment.SubscriptionParams{
		CustomerID:   customerID,
		PriceID:      s.cfg.PriceID,
		DeferPayment: true,
	})
	if err != nil {
		return SubscribeResult{}, err
	}

	var status string
	switch sub.Status {
	case payment.SubscriptionActive:
		status = domain.StatusActive
	case payment.SubscriptionIncomplete, payment.SubscriptionTrialing:
		status = domain.StatusPending
	default:
		s.logger.Warn("unexpected subscription status",
			zap.String("user_id", user.ID),
			zap.String("subscription_id", sub.ID),
			zap.String("status", sub.Status),
		)
		return SubscribeResult{}, &UnexpectedStatusError{Status: sub.Status, SubscriptionID: sub.ID}
	}

	previous := user.SubscriptionStatus
	user.CustomerID = customerID
	user.SubscriptionID = sub.ID
	user.SubscriptionStatus = status
	if err := s.users.Update(ctx, user); err != nil {
		return SubscribeResult{}, fmt.Errorf("persist subscription: %w", err)
	}
	s.notifier.Notify(ctx, user, previous, SourceSubscribe)

	return SubscribeResult{
		Status:         status,
		SubscriptionID: sub.ID,
		ClientSecret:   sub.ClientSecret,
		RequiresAction: status == domain.StatusPending && sub.RequiresAction(),
	}, nil
}

// CancelSubscription cancela en el procesador y despues marca la cuenta como "canceled".
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID string) error {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return err
	}
	if err := s.processor.CancelSubscription(ctx, user.SubscriptionID); err != nil {
		return err
	}

	previous := user.SubscriptionStatus
	user.SubscriptionStatus = domain.StatusCanceled
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	s.notifier.Notify(ctx, user, previous, SourceCancel)
	return nil
}

func (s *SubscriptionService) CheckSubscription(ctx context.Context, userID string) (bool, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return false, err
	}
	return user.IsSubscribed(), nil
}

func (s *SubscriptionService) findOrCreateCustomer(ctx context.Context, email string) (string, error) {
	customerID, found, err := s.processor.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if found {
		return customerID, nil
	}
	return s.processor.CreateCustomer(ctx, email)
}

func (s *SubscriptionService) setupPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if err := s.processor.AttachPaymentMethod(ctx, paymentMethodID, customerID); err != nil {
		if errors.Is(err, payment.ErrInvalidRequest) {
			return fmt.Errorf("%w: %w", ErrPaymentMethodInvalid, err)
		}
		return err
	}
	return s.processor.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
}
