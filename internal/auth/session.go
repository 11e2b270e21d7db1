package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/emergency-backend/internal/domain"
)

// UserLookup is the only data access the session layer performs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	TouchLastActivity(ctx context.Context, id int64, at time.Time) error
}

// OutcomeRecorder receives authentication outcomes, typically for metrics.
type OutcomeRecorder interface {
	RecordAuthOutcome(stage, result string)
}

// SessionUser is the public part of a user attached to a session.
type SessionUser struct {
	ID           int64     `json:"id"`
	Name         string    `json:"nome"`
	Email        string    `json:"email"`
	LastActivity time.Time `json:"ultima_atividade"`
}

// SessionInfo describes a session for diagnostics.
type SessionInfo struct {
	User  SessionUser `json:"usuario"`
	Token TokenInfo   `json:"token"`
}

// SessionValidator binds verified tokens to live users.
type SessionValidator struct {
	tokens  *TokenCodec
	users   UserLookup
	logger  *zap.Logger
	metrics OutcomeRecorder
}

// NewSessionValidator constructs a validator. metrics may be nil.
func NewSessionValidator(tokens *TokenCodec, users UserLookup, logger *zap.Logger, metrics OutcomeRecorder) *SessionValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionValidator{tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// Validate reports whether token is a live session for claimedID and, on
// success, records the user's last activity. Failures are logged, never returned.
func (v *SessionValidator) Validate(ctx context.Context, claimedID int64, token string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("session validation panicked", zap.Int64("claimed_id", claimedID), zap.Any("panic", r))
			v.record(fmt.Errorf("%w: panic", ErrStorageFailure))
			ok = false
		}
	}()

	_, err := v.check(ctx, claimedID, token)
	v.record(err)
	return err == nil
}

// ResolveUser returns the user behind a valid session token.
func (v *SessionValidator) ResolveUser(ctx context.Context, token string) (*domain.User, bool) {
	subjectID, err := v.tokens.Verify(token)
	if err != nil {
		v.logFailure(0, 0, err)
		v.record(err)
		return nil, false
	}
	user, err := v.check(ctx, subjectID, token)
	v.record(err)
	if err != nil {
		return nil, false
	}
	return user, true
}

// Active reports whether token carries a live session for its own subject.
func (v *SessionValidator) Active(ctx context.Context, token string) bool {
	subjectID, err := v.tokens.Verify(token)
	if err != nil {
		v.logFailure(0, 0, err)
		v.record(err)
		return false
	}
	return v.Validate(ctx, subjectID, token)
}

// Info combines the unverified token content with the user it names.
// Like TokenCodec.Introspect it is diagnostic only.
func (v *SessionValidator) Info(ctx context.Context, token string) (*SessionInfo, error) {
	info, err := v.tokens.Introspect(token)
	if err != nil {
		return nil, err
	}
	user, err := v.users.GetByID(ctx, info.SubjectID)
	if err != nil {
		return nil, lookupError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return &SessionInfo{
		User: SessionUser{
			ID:           user.ID,
			Name:         user.Name,
			Email:        user.Email,
			LastActivity: user.LastActivity,
		},
		Token: *info,
	}, nil
}

// Logout records activity for subjectID. Tokens are stateless, so a token
// presented after logout stays valid until it expires; nothing is revoked.
func (v *SessionValidator) Logout(ctx context.Context, subjectID int64) bool {
	if err := v.users.TouchLastActivity(ctx, subjectID, v.tokens.clock.Now()); err != nil {
		v.logger.Error("logout activity update failed", zap.Int64("subject_id", subjectID), zap.Error(err))
		return false
	}
	v.logger.Info("logout recorded", zap.Int64("subject_id", subjectID))
	return true
}

func (v *SessionValidator) check(ctx context.Context, claimedID int64, token string) (*domain.User, error) {
	subjectID, err := v.tokens.Verify(token)
	if err != nil {
		v.logFailure(claimedID, 0, err)
		return nil, err
	}
	if subjectID != claimedID {
		v.logFailure(claimedID, subjectID, ErrSubjectMismatch)
		return nil, ErrSubjectMismatch
	}

	user, err := v.users.GetByID(ctx, subjectID)
	if err == nil && user == nil {
		err = pgx.ErrNoRows
	}
	if err != nil {
		err = lookupError(err)
		v.logFailure(claimedID, subjectID, err)
		return nil, err
	}

	now := v.tokens.clock.Now()
	if err := v.users.TouchLastActivity(ctx, subjectID, now); err != nil {
		err = lookupError(err)
		v.logFailure(claimedID, subjectID, err)
		return nil, err
	}
	user.LastActivity = now

	v.logger.Debug("session validated", zap.Int64("subject_id", subjectID))
	return user, nil
}

func (v *SessionValidator) logFailure(claimedID, subjectID int64, err error) {
	fields := []zap.Field{zap.String("reason", reason(err)), zap.Error(err)}
	if claimedID != 0 {
		fields = append(fields, zap.Int64("claimed_id", claimedID))
	}
	if subjectID != 0 {
		fields = append(fields, zap.Int64("subject_id", subjectID))
	}
	if errors.Is(err, ErrStorageFailure) {
		v.logger.Error("session validation failed", fields...)
		return
	}
	v.logger.Warn("session validation failed", fields...)
}

func (v *SessionValidator) record(err error) {
	if v.metrics == nil {
		return
	}
	v.metrics.RecordAuthOutcome("session", reason(err))
}

func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
