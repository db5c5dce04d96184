package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"billing-api/internal/domain"
	"billing-api/internal/repository"
)

type denyLimiter struct{}

func (denyLimiter) Allow(string) bool { return false }

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Ana@Example.com ", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "Ana@Example.com" {
		t.Fatalf("expected trimmed email with case preserved, got %q", user.Email)
	}
	if user.SubscriptionStatus != domain.StatusInactive || user.IsSubscribed() {
		t.Fatalf("new account should be inactive, got %q", user.SubscriptionStatus)
	}
	if user.CustomerID != domain.NoCustomerID || user.SubscriptionID != domain.NoSubscriptionID {
		t.Fatalf("expected sentinel ids, got %q/%q", user.CustomerID, user.SubscriptionID)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret" {
		t.Fatalf("expected hashed password")
	}

	got, err := svc.Authenticate(ctx, "Ana@Example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "pw"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, "a@x.com", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(repo.usersByID) != 1 {
		t.Fatalf("expected a single stored account, got %d", len(repo.usersByID))
	}
}

func TestUserService_RegisterRaceMapsUniqueViolation(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = repository.ErrDuplicateEmail
	svc := NewUserService(zap.NewNop(), repo, nil)

	_, err := svc.Register(context.Background(), "a@x.com", "pw")
	if !errors.Is(err, ErrEmailTaken) || !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrEmailTaken wrapping ErrDuplicateEmail, got %v", err)
	}
}

func TestUserService_RegisterMissingFields(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newMockUserRepo(), nil)
	if _, err := svc.Register(context.Background(), "   ", "pw"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@x.com", ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestUserService_AuthenticateFailures(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, "a@x.com", "right"); err != nil {
		t.Fatalf("register: %v", err)
	}
	repo.seed(domain.User{Email: "nohash@x.com"})

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "missing@x.com", "right"},
		{"wrong password", "a@x.com", "wrong"},
		{"email is case sensitive", "A@X.COM", "right"},
		{"account without password", "nohash@x.com", "anything"},
		{"empty password", "a@x.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestUserService_AuthenticateRateLimited(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, denyLimiter{})

	if _, err := svc.Authenticate(context.Background(), "a@x.com", "pw"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestUserService_RateLimitIsPerExactEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo, NewMemoryLoginRateLimiter(time.Hour, 2))
	ctx := context.Background()
	if _, err := svc.Register(ctx, "a@x.com", "right"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Authenticate(ctx, "A@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := svc.Authenticate(ctx, "A@x.com", "wrong"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected A@x.com to be limited, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@x.com", "right"); err != nil {
		t.Fatalf("a@x.com must keep its own budget, got %v", err)
	}
}

func TestUserService_GetByID(t *testing.T) {
	repo := newMockUserRepo()
	seeded := repo.seed(domain.User{Email: "a@x.com"})
	svc := NewUserService(zap.NewNop(), repo, nil)

	got, err := svc.GetByID(context.Background(), seeded.ID)
	if err != nil || got.Email != "a@x.com" {
		t.Fatalf("expected seeded user, got %+v, %v", got, err)
	}
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	repo.lookupErr = errBoom
	if _, err := svc.GetByID(context.Background(), seeded.ID); !errors.Is(err, errBoom) {
		t.Fatalf("expected storage error to pass through, got %v", err)
	}
}
