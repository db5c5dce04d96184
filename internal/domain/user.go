package domain

import "time"

// Valores centinela para cuentas sin cliente ni suscripcion en el procesador de pagos.
const (
	NoCustomerID     = "unsubscribed"
	NoSubscriptionID = "none"
)

// Estados de suscripcion que el sistema asigna por su cuenta. Cualquier otro valor
// proviene literalmente del procesador (customer.subscription.updated).
const (
	StatusInactive      = "inactive"
	StatusActive        = "active"
	StatusPending       = "pending"
	StatusCanceled      = "canceled"
	StatusPaymentFailed = "payment_failed"
)

type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	CustomerID         string    `json:"customer_id"`
	SubscriptionID     string    `json:"subscription_id"`
	SubscriptionStatus string    `json:"subscription_status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsSubscribed es verdadero solo con estado "active".
func (u User) IsSubscribed() bool {
	return u.SubscriptionStatus == StatusActive
}
