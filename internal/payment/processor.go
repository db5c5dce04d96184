// Package payment envuelve el procesador de pagos externo (Stripe) detras de una
// interfaz pequeña y clasifica sus errores.
package payment

import "context"

// Tipos de evento de webhook que el reconciliador entiende.
const (
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventSubscriptionUpdated     = "customer.subscription.updated"
)

// Estados del procesador consultados por el flujo de suscripcion.
const (
	SubscriptionActive     = "active"
	SubscriptionIncomplete = "incomplete"
	SubscriptionTrialing   = "trialing"

	PaymentIntentRequiresAction = "requires_action"
)

// Processor es el contrato con el procesador de pagos.
type Processor interface {
	CreateCustomer(ctx context.Context, email string) (string, error)
	// FindCustomerByEmail devuelve el primer cliente con ese email, si existe.
	FindCustomerByEmail(ctx context.Context, email string) (string, bool, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSubscription(ctx context.Context, params SubscriptionParams) (Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	// ParseWebhook verifica la firma y decodifica el evento.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// SubscriptionParams describe una suscripcion a crear.
type SubscriptionParams struct {
	CustomerID string
	PriceID    string
	// DeferPayment crea la suscripcion en estado incompleto hasta que el cliente
	// confirme el pago (payment_behavior=default_incomplete).
	DeferPayment bool
}

// Subscription es la vista reducida de una suscripcion creada.
type Subscription struct {
	ID                  string
	Status              string
	ClientSecret        string
	PaymentIntentStatus string
}

// RequiresAction indica que el pago necesita un paso adicional del usuario (3DS, etc.).
func (s Subscription) RequiresAction() bool {
	return s.PaymentIntentStatus == PaymentIntentRequiresAction
}

// Event es un webhook verificado. CustomerID y Status solo se rellenan para
// eventos de factura y de suscripcion.
type Event struct {
	ID         string
	Type       string
	CustomerID string
	Status     string
}
