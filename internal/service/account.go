package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/tallybook/tally/internal/auth"
	"github.com/tallybook/tally/internal/events"
	"github.com/tallybook/tally/internal/metrics"
	"github.com/tallybook/tally/internal/model"
	"github.com/tallybook/tally/internal/repository"
)

const (
	minNameLength     = 3
	maxNameLength     = 100
	minPasswordLength = 4
	maxPasswordLength = 100
	maxEmailLength    = 254
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(user *model.User) (string, error)
}

// AccountService handles signup, login and account removal.
type AccountService struct {
	users     UserStore
	tokens    TokenIssuer
	cache     LedgerCache
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *slog.Logger
	hash      func(password string) (string, error)
	now       func() time.Time

	// dummyHash is verified against when the email is unknown so both
	// failure paths cost one argon2 derivation.
	dummyHash string
}

// AccountServiceConfig holds the optional collaborators of AccountService.
type AccountServiceConfig struct {
	Cache     LedgerCache
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *slog.Logger
	// Hash overrides the password hasher; tests use cheaper parameters.
	Hash func(password string) (string, error)
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, tokens TokenIssuer, cfg AccountServiceConfig) (*AccountService, error) {
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewNoop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hash == nil {
		cfg.Hash = auth.HashPassword
	}

	dummy, err := cfg.Hash(ulid.Make().String())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &AccountService{
		users:     users,
		tokens:    tokens,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		hash:      cfg.Hash,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// SignupInput defines input for registering an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup validates and stores a new account.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*model.User, error) {
	name := strings.TrimSpace(input.Name)
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return nil, invalid("name", fmt.Sprintf("name must be %d-%d characters", minNameLength, maxNameLength))
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if n := utf8.RuneCountInString(input.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, invalid("password", fmt.Sprintf("password must be %d-%d characters", minPasswordLength, maxPasswordLength))
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncSignup()
	s.logger.InfoContext(ctx, "user_signed_up", "user_id", user.ID)

	return user, nil
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is a successful login.
type LoginResult struct {
	User  *model.User
	Token string
}

// Login checks credentials and issues a session token.
// Unknown emails and wrong passwords fail identically.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, invalid("password", "password is required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}

	ok, err := auth.VerifyPassword(input.Password, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if user == nil || !ok {
		s.metrics.IncLogin(metrics.LoginFailed)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.InfoContext(ctx, "user_logged_in", "user_id", user.ID)

	return &LoginResult{User: user, Token: token}, nil
}

// DeleteAccount removes the user and, by cascade, their whole ledger.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.metrics.IncAccountDeleted()
	invalidateLedger(ctx, s.cache, s.logger, userID)
	publish(ctx, s.publisher, s.metrics, s.logger, events.AccountDeleted(userID, s.now().UTC()))

	s.logger.InfoContext(ctx, "account_deleted", "user_id", userID)

	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", invalid("email", "a valid email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "a valid email is required")
	}
	return email, nil
}
