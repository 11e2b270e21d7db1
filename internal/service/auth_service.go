package service

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/emergency-backend/internal/auth"
	"github.com/spec-kit/emergency-backend/internal/config"
	"github.com/spec-kit/emergency-backend/internal/domain"
	"github.com/spec-kit/emergency-backend/internal/events"
	"github.com/spec-kit/emergency-backend/internal/repository"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

const (
	DefaultEphemeralMinutes = 60
	MaxEphemeralMinutes     = 24 * 60
)

// AuthService coordinates registration, login and session flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenCodec
	sessions   *auth.SessionValidator
	limiter    *auth.LoginLimiter
	dispatcher events.Dispatcher
	metrics    auth.OutcomeRecorder
	clock      auth.Clock
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
// Limiter, Dispatcher, Metrics and Clock are optional.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenCodec
	Sessions   *auth.SessionValidator
	Limiter    *auth.LoginLimiter
	Dispatcher events.Dispatcher
	Metrics    auth.OutcomeRecorder
	Clock      auth.Clock
	Logger     *zap.Logger
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// Validate checks the registration rules.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), containsAt),
		// bcrypt only reads the first 72 bytes.
		validation.Field(&in.Password, validation.Required, validation.RuneLength(auth.MinPasswordLength, 0), validation.Length(0, 72)),
	)
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// Validate checks that both credentials are present.
func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// AuthResult is returned by every flow that mints a token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt int64
	Ephemeral bool
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = auth.SystemClock
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		sessions:   deps.Sessions,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      clock,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": in.Email})
		}
		return nil, err
	}

	result, err := s.issue(user.ID, s.tokens.DefaultLifetime())
	if err != nil {
		return nil, err
	}
	result.User = user
	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, events.UserPayload{Email: user.Email}))
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return result, nil
}

// Login checks credentials. Repeated failures for one email are throttled
// by the login limiter.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, validationFailed(err)
	}

	if !s.limiter.Allow(ctx, in.Email) {
		s.recordLogin("blocked")
		return nil, apperrors.NewTooManyRequests("too many failed login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil || !auth.PasswordMatches(user.PasswordHash, in.Password) {
		s.limiter.RecordFailure(ctx, in.Email)
		s.recordLogin("invalid_credentials")
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	now := s.clock.Now()
	if err := s.users.TouchLastActivity(ctx, user.ID, now); err != nil {
		s.logger.Warn("login activity update failed", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastActivity = now
	}
	s.limiter.Reset(ctx, in.Email)

	result, err := s.issue(user.ID, s.tokens.DefaultLifetime())
	if err != nil {
		return nil, err
	}
	result.User = user
	s.recordLogin("ok")
	s.publish(ctx, events.New(events.EventUserLoggedIn, user.ID, events.UserPayload{Email: user.Email}))
	return result, nil
}

// Logout records activity for the subject. The presented token is not
// revoked and stays usable until it expires.
func (s *AuthService) Logout(ctx context.Context, subjectID int64) error {
	if !s.sessions.Logout(ctx, subjectID) {
		return apperrors.NewInternalError(errors.New("logout activity update failed"))
	}
	s.publish(ctx, events.New(events.EventUserLoggedOut, subjectID, nil))
	return nil
}

// RenewToken mints a fresh default-lifetime token from a valid one.
func (s *AuthService) RenewToken(_ context.Context, token string) (*AuthResult, error) {
	renewed, err := s.tokens.Renew(token)
	if err != nil {
		if errors.Is(err, auth.ErrMalformedToken) || errors.Is(err, auth.ErrSignatureMismatch) || errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorized("invalid or expired token")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return s.describe(renewed)
}

// IssueEphemeral mints a short-lived token for subjectID. minutes == 0
// selects DefaultEphemeralMinutes.
func (s *AuthService) IssueEphemeral(_ context.Context, subjectID int64, minutes int) (*AuthResult, error) {
	if minutes == 0 {
		minutes = DefaultEphemeralMinutes
	}
	if minutes < 1 || minutes > MaxEphemeralMinutes {
		return nil, apperrors.NewValidationError("invalid duration", map[string]any{
			"duracao_minutos": "must be between 1 and 1440",
		})
	}
	return s.issue(subjectID, time.Duration(minutes)*time.Minute)
}

// SessionInfo returns diagnostic information about the presented token.
func (s *AuthService) SessionInfo(ctx context.Context, token string) (*auth.SessionInfo, error) {
	info, err := s.sessions.Info(ctx, token)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, auth.ErrUserNotFound):
		return nil, apperrors.NewNotFound("user", nil)
	case errors.Is(err, auth.ErrMalformedToken):
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	default:
		return nil, apperrors.NewInternalError(err)
	}
}

// DeleteAccount removes the subject and all of its projects.
func (s *AuthService) DeleteAccount(ctx context.Context, subjectID int64) error {
	if err := s.users.Delete(ctx, subjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	s.publish(ctx, events.New(events.EventAccountDeleted, subjectID, nil))
	s.logger.Info("account deleted", zap.Int64("user_id", subjectID))
	return nil
}

func (s *AuthService) issue(subjectID int64, lifetime time.Duration) (*AuthResult, error) {
	token, err := s.tokens.Issue(subjectID, lifetime)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return s.describe(token)
}

func (s *AuthService) describe(token string) (*AuthResult, error) {
	info, err := s.tokens.Introspect(token)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: info.ExpiresAt, Ephemeral: info.Ephemeral}, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *AuthService) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthOutcome("login", result)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
