package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// StripeConfig agrupa lo necesario para hablar con Stripe.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL permite apuntar a un servidor alternativo (stripe-mock, tests).
	APIURL  string
	Timeout time.Duration
}

// StripeProcessor implementa Processor sobre stripe-go.
type StripeProcessor struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProcessor construye el cliente sin reintentos de red: un fallo se devuelve tal cual.
func NewStripeProcessor(cfg StripeConfig, logger *zap.Logger) *StripeProcessor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if logger != nil {
		backendCfg.LeveledLogger = logger.Sugar()
	}
	apiCfg := *backendCfg
	if cfg.APIURL != "" {
		apiCfg.URL = stripe.String(cfg.APIURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, &apiCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	return &StripeProcessor{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", classify("create customer", err)
	}
	return c.ID, nil
}

func (p *StripeProcessor) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	it := p.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, true, nil
	}
	if err := it.Err(); err != nil {
		return "", false, classify("list customers", err)
	}
	return "", false, nil
}

func (p *StripeProcessor) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	_, err := p.api.PaymentMethods.Attach(paymentMethodID, params)
	return classify("attach payment method", err)
}

func (p *StripeProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	_, err := p.api.Customers.Update(customerID, params)
	return classify("set default payment method", err)
}

func (p *StripeProcessor) CreateSubscription(ctx context.Context, in SubscriptionParams) (Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(in.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(in.PriceID)},
		},
	}
	if in.DeferPayment {
		params.PaymentBehavior = stripe.String("default_incomplete")
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := p.api.Subscriptions.New(params)
	if err != nil {
		return Subscription{}, classify("create subscription", err)
	}
	out := Subscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		out.PaymentIntentStatus = string(sub.LatestInvoice.PaymentIntent.Status)
	}
	return out, nil
}

func (p *StripeProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := p.api.Subscriptions.Cancel(subscriptionID, params)
	return classify("cancel subscription", err)
}

func (p *StripeProcessor) ParseWebhook(payload []byte, signature string) (Event, error) {
	return ParseStripeEvent(payload, signature, p.webhookSecret)
}

// ParseStripeEvent verifica el header Stripe-Signature contra secret y extrae el cliente
// (y el estado, para suscripciones) del objeto del evento.
func ParseStripeEvent(payload []byte, signature, secret string) (Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed,
		EventSubscriptionDeleted, EventSubscriptionUpdated:
		// Solo se leen customer y status; el resto del objeto cambia entre versiones de API.
		var obj eventObject
		if err := json.Unmarshal(evt.Data.Raw, &obj); err != nil {
			return Event{}, fmt.Errorf("%w: event object: %v", ErrInvalidPayload, err)
		}
		out.CustomerID = customerRef(obj.Customer)
		if out.Type == EventSubscriptionDeleted || out.Type == EventSubscriptionUpdated {
			out.Status = obj.Status
		}
	}
	return out, nil
}

type eventObject struct {
	Customer json.RawMessage `json:"customer"`
	Status   string          `json:"status"`
}

// customerRef acepta el id como string o el objeto customer expandido.
func customerRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return expanded.ID
	}
	return ""
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
