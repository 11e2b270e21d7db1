package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/emergency-backend/internal/api/dto"
	"github.com/spec-kit/emergency-backend/internal/auth"
	"github.com/spec-kit/emergency-backend/internal/service"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// UsersHandler exposes account and token endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/cadastro.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "account created",
		"data":    dto.NewAuthResponse(result),
	})
}

// Login handles POST /api/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.auth.Login(c.UserContext(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "login successful",
		"data":    dto.NewAuthResponse(result),
	})
}

// Logout handles POST /api/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), subjectID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "logout successful"})
}

// RenewToken handles POST /api/renovar_token.
func (h *UsersHandler) RenewToken(c *fiber.Ctx) error {
	result, err := h.auth.RenewToken(c.UserContext(), auth.BearerToken(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "token renewed",
		"data":    dto.NewAuthResponse(result),
	})
}

// EphemeralToken handles POST /api/token_temporario. An empty body selects
// the default duration.
func (h *UsersHandler) EphemeralToken(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}

	var req dto.EphemeralTokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	result, err := h.auth.IssueEphemeral(c.UserContext(), subjectID, req.DurationMinutes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "temporary token issued",
		"data":    dto.NewAuthResponse(result),
	})
}

// Session handles GET /api/sessao.
func (h *UsersHandler) Session(c *fiber.Ctx) error {
	info, err := h.auth.SessionInfo(c.UserContext(), auth.BearerToken(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": info})
}

// DeleteAccount handles DELETE /api/conta.
func (h *UsersHandler) DeleteAccount(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}
	if err := h.auth.DeleteAccount(c.UserContext(), subjectID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "account deleted"})
}

// subject returns the authenticated user id set by the auth gate.
func subject(c *fiber.Ctx) (int64, error) {
	subjectID, ok := auth.SubjectFromContext(c)
	if !ok {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	return subjectID, nil
}
