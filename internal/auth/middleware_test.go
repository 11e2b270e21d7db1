package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

func newTestGate(t *testing.T, ids ...int64) (*Gate, *sessionFixture) {
	t.Helper()
	f := newSessionFixture(t, nil, ids...)
	return NewGate(f.codec, f.validator, nil, f.outcomes), f
}

func TestGateAuthenticate(t *testing.T) {
	gate, f := newTestGate(t, 1, 2)
	token := f.token(t, 1)
	orphan := f.token(t, 99)

	cases := []struct {
		name    string
		header  string
		subject int64
		kind    AuthErrorKind
	}{
		{name: "bearer prefix", header: "Bearer " + token, subject: 1},
		{name: "bare token", header: token, subject: 1},
		{name: "no header", header: "", kind: AuthMissing},
		{name: "prefix only", header: "Bearer ", kind: AuthMissing},
		{name: "lowercase prefix", header: "bearer " + token, kind: AuthInvalidOrExpired},
		{name: "garbage", header: "Bearer not-a-token", kind: AuthInvalidOrExpired},
		{name: "unknown user", header: "Bearer " + orphan, kind: AuthSessionInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subject, err := gate.Authenticate(context.Background(), tc.header)
			if tc.subject != 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.subject, subject)
				return
			}
			var authErr *AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tc.kind, authErr.Kind)
			assert.Zero(t, subject)
		})
	}

	assert.Equal(t, 2, f.outcomes.get("gate:ok"))
	assert.Equal(t, 2, f.outcomes.get("gate:missing"))
	assert.Equal(t, 1, f.outcomes.get("gate:session_invalid"))
}

func TestGateAuthenticateWrapsVerifyError(t *testing.T) {
	gate, _ := newTestGate(t)

	_, err := gate.Authenticate(context.Background(), "Bearer not-a-token")
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.Equal(t, "invalid or expired token", err.(*AuthError).Message())
}

func TestGateHandle(t *testing.T) {
	gate, f := newTestGate(t, 5)
	token := f.token(t, 5)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	app.Get("/me", gate.Handle, func(c *fiber.Ctx) error {
		subject, ok := SubjectFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(fiber.Map{"id": subject, "token": BearerToken(c) == token})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	f.users.delete(5)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
