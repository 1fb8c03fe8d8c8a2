package server

import (
	"shiplog/internal/models"
	"shiplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Pitch       string   `json:"pitch"`
	Website     string   `json:"website"`
	Emoji       string   `json:"emoji"`
	Topics      []string `json:"topics"`
	IsPrivate   bool     `json:"is_private"`
}

// GetProjects handles GET /api/projects
// @Summary List projects
// @Description Get active projects visible to the caller
// @Tags projects
// @Produce json
// @Success 200 {array} models.Project
// @Router /projects [get]
func (s *Server) GetProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.List(c.UserContext(), sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(projects)
}

// GetMyProjects handles GET /api/projects/mine
// @Summary List my projects
// @Description Get the caller's projects including archived ones
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Project
// @Failure 401 {object} models.ErrorResponse
// @Router /projects/mine [get]
func (s *Server) GetMyProjects(c *fiber.Ctx) error {
	projects, err := s.projectService.ListMine(c.UserContext(), sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(projects)
}

// CreateProject handles POST /api/projects
// @Summary Create project
// @Description Create a project owned by the caller
// @Tags projects
// @Accept json
// @Produce json
// @Param request body CreateProjectRequest true "Project request"
// @Security BearerAuth
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	project, err := s.projectService.Create(c.UserContext(), service.CreateProjectInput{
		OwnerID:     sessionUserID(c),
		Name:        req.Name,
		Description: req.Description,
		Pitch:       req.Pitch,
		Website:     req.Website,
		Emoji:       req.Emoji,
		Topics:      req.Topics,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject handles GET /api/projects/:id
// @Summary Get project
// @Description Get a project with its recent ships
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} service.ProjectDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	detail, err := s.projectService.Detail(c.UserContext(), c.Params("id"), sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(detail)
}

// ArchiveProject handles POST /api/projects/:id/archive
// @Summary Archive project
// @Description Archive a project owned by the caller
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Security BearerAuth
// @Success 200 {object} models.Project
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /projects/{id}/archive [post]
func (s *Server) ArchiveProject(c *fiber.Ctx) error {
	project, err := s.projectService.Archive(c.UserContext(), c.Params("id"), sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(project)
}
