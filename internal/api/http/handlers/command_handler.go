package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/emergency-backend/internal/api/dto"
	"github.com/spec-kit/emergency-backend/internal/service"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// CommandHandler exposes the single-endpoint action dispatcher.
type CommandHandler struct {
	commands *service.CommandService
}

// NewCommandHandler constructs handler.
func NewCommandHandler(commands *service.CommandService) *CommandHandler {
	return &CommandHandler{commands: commands}
}

// Execute handles POST /api/comando.
func (h *CommandHandler) Execute(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}

	var req dto.CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	result, err := h.commands.Execute(c.UserContext(), subjectID, req.Action, req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
