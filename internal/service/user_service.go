package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"billing-api/internal/domain"
	"billing-api/internal/repository"
)

// UserService coordina reglas de negocio para cuentas.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	loginLimiter LoginRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, loginLimiter LoginRateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loginLimiter == nil {
		loginLimiter = NewMemoryLoginRateLimiter(defaultLoginWindow, defaultLoginAttempts)
	}
	return &UserService{
		logger:       logger,
		users:        users,
		loginLimiter: loginLimiter,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrMissingFields      = errors.New("email and password are required")
)

const (
	defaultLoginWindow   = 15 * time.Minute
	defaultLoginAttempts = 10
)

// Register crea una cuenta sin suscripcion.
func (s *UserService) Register(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, ErrMissingFields
	}
	if err := ensureEmailAvailable(ctx, s.users, email); err != nil {
		return domain.User{}, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	user := newUser(email, hash, domain.StatusInactive)
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, mapCreateError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if s.loginLimiter != nil && !s.loginLimiter.Allow(email) {
		return domain.User{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	return loadUser(ctx, s.users, id)
}

func loadUser(ctx context.Context, users repository.UserRepository, id string) (domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func ensureEmailAvailable(ctx context.Context, users repository.UserRepository, email string) error {
	_, err := users.GetByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

// mapCreateError cubre la carrera entre la comprobacion previa y el INSERT.
func mapCreateError(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	}
	return err
}

func newUser(email, passwordHash, status string) domain.User {
	now := time.Now().UTC()
	return domain.User{
		ID:                 uuid.NewString(),
		Email:              email,
		PasswordHash:       passwordHash,
		CustomerID:         domain.NoCustomerID,
		SubscriptionID:     domain.NoSubscriptionID,
		SubscriptionStatus: status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func hashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Los emails se guardan tal como llegan, solo sin espacios alrededor.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
