package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/emergency-backend/internal/api/dto"
	"github.com/spec-kit/emergency-backend/internal/service"
	apperrors "github.com/spec-kit/emergency-backend/pkg/util/errorutil"
)

// ProjectsHandler exposes project endpoints for authenticated users.
type ProjectsHandler struct {
	projects *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projects *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// Save handles POST /api/salvar_projeto.
func (h *ProjectsHandler) Save(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}

	var req dto.SaveProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	project, err := h.projects.Save(c.UserContext(), subjectID, service.SaveProjectInput{
		Title:     req.Title,
		HTML:      req.HTML,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	message := "project created"
	if req.ProjectID != nil {
		status = http.StatusOK
		message = "project updated"
	}
	return c.Status(status).JSON(fiber.Map{"message": message, "data": project})
}

// Load handles GET /api/carregar_projeto/:id.
func (h *ProjectsHandler) Load(c *fiber.Ctx) error {
	subjectID, projectID, err := subjectAndProject(c)
	if err != nil {
		return err
	}
	project, err := h.projects.Load(c.UserContext(), subjectID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": project})
}

// List handles GET /api/listar_projetos.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}
	projects, err := h.projects.List(c.UserContext(), subjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": projects, "total": len(projects)})
}

// Delete handles DELETE /api/deletar_projeto/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	subjectID, projectID, err := subjectAndProject(c)
	if err != nil {
		return err
	}
	if err := h.projects.Delete(c.UserContext(), subjectID, projectID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "project deleted"})
}

// Preview handles GET /api/preview_projeto/:id?max_chars=N.
func (h *ProjectsHandler) Preview(c *fiber.Ctx) error {
	subjectID, projectID, err := subjectAndProject(c)
	if err != nil {
		return err
	}
	preview, err := h.projects.Preview(c.UserContext(), subjectID, projectID, c.QueryInt("max_chars", service.DefaultPreviewChars))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": preview})
}

// Stats handles GET /api/estatisticas.
func (h *ProjectsHandler) Stats(c *fiber.Ctx) error {
	subjectID, err := subject(c)
	if err != nil {
		return err
	}
	stats, err := h.projects.Stats(c.UserContext(), subjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

func subjectAndProject(c *fiber.Ctx) (int64, int64, error) {
	subjectID, err := subject(c)
	if err != nil {
		return 0, 0, err
	}
	projectID, err := c.ParamsInt("id")
	if err != nil || projectID <= 0 {
		return 0, 0, apperrors.NewValidationError("invalid project id", map[string]any{"id": c.Params("id")})
	}
	return subjectID, int64(projectID), nil
}
