package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v76"
)

var (
	ErrCardDeclined     = errors.New("payment method declined")
	ErrInvalidRequest   = errors.New("invalid processor request")
	ErrRateLimited      = errors.New("processor rate limit exceeded")
	ErrAuthentication   = errors.New("processor authentication failed")
	ErrUnreachable      = errors.New("processor unreachable")
	ErrProcessor        = errors.New("payment processing error")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// Error es un fallo del procesador ya clasificado. Kind es uno de los Err* del paquete.
type Error struct {
	Kind    error
	Op      string
	Code    string
	Param   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return &Error{Kind: ErrUnreachable, Op: op, Message: err.Error(), Err: err}
	}

	out := &Error{
		Op:      op,
		Code:    string(stripeErr.Code),
		Param:   stripeErr.Param,
		Message: stripeErr.Msg,
		Err:     err,
	}
	switch {
	case stripeErr.HTTPStatusCode == http.StatusTooManyRequests || stripeErr.Code == "rate_limit":
		out.Kind = ErrRateLimited
	case stripeErr.HTTPStatusCode == http.StatusUnauthorized:
		out.Kind = ErrAuthentication
	case stripeErr.Type == stripe.ErrorTypeCard:
		out.Kind = ErrCardDeclined
	case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
		out.Kind = ErrInvalidRequest
	default:
		out.Kind = ErrProcessor
	}
	return out
}

// Outcome reduce un error a una etiqueta estable para metricas y logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCardDeclined):
		return "card_declined"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuthentication):
		return "auth_failed"
	case errors.Is(err, ErrUnreachable):
		return "unreachable"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "error"
	}
}
