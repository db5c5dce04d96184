package service

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"billing-api/internal/domain"
	"billing-api/internal/events"
	"billing-api/internal/payment"
	"billing-api/internal/repository"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
	updateErr    error
	lookupErr    error
	updates      int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	if m.lookupErr != nil {
		return domain.User{}, m.lookupErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.lookupErr != nil {
		return domain.User{}, m.lookupErr
	}
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByCustomerID(_ context.Context, customerID string) (domain.User, error) {
	if m.lookupErr != nil {
		return domain.User{}, m.lookupErr
	}
	for _, u := range m.usersByID {
		if u.CustomerID == customerID {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.updates++
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) seed(user domain.User) domain.User {
	if user.ID == "" {
		user.ID = "u-" + user.Email
	}
	if user.CustomerID == "" {
		user.CustomerID = domain.NoCustomerID
	}
	if user.SubscriptionID == "" {
		user.SubscriptionID = domain.NoSubscriptionID
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = domain.StatusInactive
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return user
}

type attachCall struct {
	paymentMethodID string
	customerID      string
}

type fakeProcessor struct {
	customersByEmail map[string]string
	created          []string
	attached         []attachCall
	defaults         []attachCall
	subParams        []payment.SubscriptionParams
	canceled         []string

	subscription payment.Subscription
	event        payment.Event

	createCustomerErr error
	findErr           error
	attachErr         error
	defaultErr        error
	subscribeErr      error
	cancelErr         error
	parseErr          error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		customersByEmail: make(map[string]string),
		subscription:     payment.Subscription{ID: "sub_1", Status: payment.SubscriptionActive, ClientSecret: "pi_secret"},
	}
}

func (f *fakeProcessor) CreateCustomer(_ context.Context, email string) (string, error) {
	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	id := "cus_" + email
	f.created = append(f.created, email)
	f.customersByEmail[email] = id
	return id, nil
}

func (f *fakeProcessor) FindCustomerByEmail(_ context.Context, email string) (string, bool, error) {
	if f.findErr != nil {
		return "", false, f.findErr
	}
	id, ok := f.customersByEmail[email]
	return id, ok, nil
}

func (f *fakeProcessor) AttachPaymentMethod(_ context.Context, paymentMethodID, customerID string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, attachCall{paymentMethodID, customerID})
	return nil
}

func (f *fakeProcessor) SetDefaultPaymentMethod(_ context.Context, customerID, paymentMethodID string) error {
	if f.defaultErr != nil {
		return f.defaultErr
	}
	f.defaults = append(f.defaults, attachCall{paymentMethodID, customerID})
	return nil
}

func (f *fakeProcessor) CreateSubscription(_ context.Context, params payment.SubscriptionParams) (payment.Subscription, error) {
	if f.subscribeErr != nil {
		return payment.Subscription{}, f.subscribeErr
	}
	f.subParams = append(f.subParams, params)
	return f.subscription, nil
}

func (f *fakeProcessor) CancelSubscription(_ context.Context, subscriptionID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, subscriptionID)
	return nil
}

func (f *fakeProcessor) ParseWebhook(_ []byte, _ string) (payment.Event, error) {
	if f.parseErr != nil {
		return payment.Event{}, f.parseErr
	}
	return f.event, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []events.StatusChange
	err     error
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, change events.StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingObserver struct {
	statuses []string
	webhooks []string
}

func (o *recordingObserver) ObserveStatusChange(source, status string) {
	o.statuses = append(o.statuses, source+":"+status)
}

func (o *recordingObserver) ObserveWebhookEvent(eventType, result string) {
	o.webhooks = append(o.webhooks, eventType+":"+result)
}

var errBoom = errors.New("boom")
