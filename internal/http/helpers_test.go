package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/metrics"
	"billing-api/internal/payment"
	"billing-api/internal/repository"
	"billing-api/internal/service"
)

const testWebhookSecret = "whsec_test"

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByCustomerID(_ context.Context, customerID string) (domain.User, error) {
	for _, u := range m.usersByID {
		if u.CustomerID == customerID {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) error {
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	return nil
}

// stubProcessor responde con valores fijos y verifica webhooks con la firma real.
type stubProcessor struct {
	subscription payment.Subscription
	err          error
	canceled     []string
}

func (p *stubProcessor) CreateCustomer(_ context.Context, email string) (string, error) {
	return "cus_" + email, p.err
}

func (p *stubProcessor) FindCustomerByEmail(context.Context, string) (string, bool, error) {
	return "", false, p.err
}

func (p *stubProcessor) AttachPaymentMethod(context.Context, string, string) error { return p.err }

func (p *stubProcessor) SetDefaultPaymentMethod(context.Context, string, string) error { return nil }

func (p *stubProcessor) CreateSubscription(context.Context, payment.SubscriptionParams) (payment.Subscription, error) {
	return p.subscription, nil
}

func (p *stubProcessor) CancelSubscription(_ context.Context, subscriptionID string) error {
	p.canceled = append(p.canceled, subscriptionID)
	return p.err
}

func (p *stubProcessor) ParseWebhook(payload []byte, signature string) (payment.Event, error) {
	return payment.ParseStripeEvent(payload, signature, testWebhookSecret)
}

type testServer struct {
	router    *gin.Engine
	repo      *mockUserRepo
	processor *stubProcessor
	jwt       *service.JWTService
	metrics   *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	ts := &testServer{
		repo: newMockUserRepo(),
		processor: &stubProcessor{
			subscription: payment.Subscription{ID: "sub_1", Status: payment.SubscriptionActive, ClientSecret: "cs_1"},
		},
		jwt:     service.NewJWTService("secret", time.Hour),
		metrics: metrics.New(),
	}
	notifier := service.NewStatusNotifier(logger, nil, ts.metrics)
	users := service.NewUserService(logger, ts.repo, nil)
	subs := service.NewSubscriptionService(logger, ts.repo, ts.processor, notifier, service.SubscriptionConfig{PriceID: "price_1"})
	hooks := service.NewWebhookService(logger, ts.repo, ts.processor, notifier, ts.metrics)

	ts.router = NewRouter(logger, ts.metrics, ts.jwt,
		NewUserHandler(logger, users, ts.jwt),
		NewSubscriptionHandler(logger, subs, ts.jwt),
		NewWebhookHandler(logger, hooks),
		NewHealthHandler(logger, nil),
	)
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// register crea una cuenta por HTTP y devuelve el token emitido.
func (ts *testServer) register(t *testing.T, email, password string) string {
	t.Helper()
	rec := ts.do(http.MethodPost, "/register", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["token"].(string)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func signPayload(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func eventPayload(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`, eventType, object))
}
