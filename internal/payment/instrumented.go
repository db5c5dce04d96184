package payment

import "context"

// CallObserver recibe el resultado de cada llamada al procesador.
type CallObserver interface {
	ObserveProcessorCall(op, outcome string)
}

type instrumentedProcessor struct {
	next Processor
	obs  CallObserver
}

// WithObserver decora p para reportar cada llamada a obs. Con obs nil devuelve p.
func WithObserver(p Processor, obs CallObserver) Processor {
	if obs == nil {
		return p
	}
	return &instrumentedProcessor{next: p, obs: obs}
}

func (p *instrumentedProcessor) observe(op string, err error) {
	p.obs.ObserveProcessorCall(op, Outcome(err))
}

func (p *instrumentedProcessor) CreateCustomer(ctx context.Context, email string) (string, error) {
	id, err := p.next.CreateCustomer(ctx, email)
	p.observe("create_customer", err)
	return id, err
}

func (p *instrumentedProcessor) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	id, ok, err := p.next.FindCustomerByEmail(ctx, email)
	p.observe("find_customer", err)
	return id, ok, err
}

func (p *instrumentedProcessor) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	err := p.next.AttachPaymentMethod(ctx, paymentMethodID, customerID)
	p.observe("attach_payment_method", err)
	return err
}

func (p *instrumentedProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	err := p.next.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
	p.observe("set_default_payment_method", err)
	return err
}

func (p *instrumentedProcessor) CreateSubscription(ctx context.Context, params SubscriptionParams) (Subscription, error) {
	sub, err := p.next.CreateSubscription(ctx, params)
	p.observe("create_subscription", err)
	return sub, err
}

func (p *instrumentedProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	err := p.next.CancelSubscription(ctx, subscriptionID)
	p.observe("cancel_subscription", err)
	return err
}

func (p *instrumentedProcessor) ParseWebhook(payload []byte, signature string) (Event, error) {
	evt, err := p.next.ParseWebhook(payload, signature)
	p.observe("parse_webhook", err)
	return evt, err
}
