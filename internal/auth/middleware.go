package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

const (
	subjectKey   = "auth_subject_id"
	bearerPrefix = "Bearer "
)

// Gate is the single place that decides whether a request is authenticated.
type Gate struct {
	tokens   *TokenCodec
	sessions *SessionValidator
	logger   *zap.Logger
	metrics  OutcomeRecorder
}

// NewGate constructs the gate. metrics may be nil.
func NewGate(tokens *TokenCodec, sessions *SessionValidator, logger *zap.Logger, metrics OutcomeRecorder) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, sessions: sessions, logger: logger, metrics: metrics}
}

// Authenticate resolves the acting subject from a raw Authorization header
// value. An optional, case-sensitive "Bearer " prefix is stripped. Errors are
// always *AuthError.
func (g *Gate) Authenticate(ctx context.Context, rawHeader string) (int64, error) {
	subjectID, err := g.authenticate(ctx, rawHeader)
	if g.metrics != nil {
		result := "ok"
		var authErr *AuthError
		if errors.As(err, &authErr) {
			result = authErr.Kind.String()
		}
		g.metrics.RecordAuthOutcome("gate", result)
	}
	return subjectID, err
}

func (g *Gate) authenticate(ctx context.Context, rawHeader string) (int64, error) {
	token := strings.TrimPrefix(rawHeader, bearerPrefix)
	if token == "" {
		return 0, &AuthError{Kind: AuthMissing}
	}

	subjectID, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Warn("rejected token", zap.String("reason", reason(err)))
		return 0, &AuthError{Kind: AuthInvalidOrExpired, Err: err}
	}

	if !g.sessions.Validate(ctx, subjectID, token) {
		return 0, &AuthError{Kind: AuthSessionInvalid}
	}
	return subjectID, nil
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	subjectID, err := g.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return apperrors.NewUnauthorized(authErr.Message())
		}
		return apperrors.NewUnauthorized("authentication failed")
	}

	c.Locals(subjectKey, subjectID)
	return c.Next()
}

// SubjectFromContext returns the subject id stored by Gate.Handle.
func SubjectFromContext(c *fiber.Ctx) (int64, bool) {
	subjectID, ok := c.Locals(subjectKey).(int64)
	return subjectID, ok && subjectID > 0
}

// BearerToken returns the token part of the request's Authorization header.
// It is meant for handlers that must re-present the token (renewal,
// diagnostics) after Gate.Handle has already authenticated the request.
func BearerToken(c *fiber.Ctx) string {
	return strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), bearerPrefix)
}
