package server

import (
	"shiplog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SuggestRequest carries the composer text and the caret position in runes.
type SuggestRequest struct {
	Text  string `json:"text"`
	Caret int    `json:"caret"`
}

// SelectRequest links the project to the hashtag under the caret.
type SelectRequest struct {
	Text      string `json:"text"`
	Caret     int    `json:"caret"`
	ProjectID string `json:"project_id"`
}

// SuggestHashtags handles POST /api/hashtags/suggest
// @Summary Suggest hashtags
// @Description Get project suggestions for the hashtag under the caret
// @Tags hashtags
// @Accept json
// @Produce json
// @Param request body SuggestRequest true "Composer text and caret"
// @Security BearerAuth
// @Success 200 {object} service.Suggestion
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /hashtags/suggest [post]
func (s *Server) SuggestHashtags(c *fiber.Ctx) error {
	var req SuggestRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	suggestion, err := s.hashtagService.Suggest(c.UserContext(), sessionUserID(c), req.Text, req.Caret)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(suggestion)
}

// SelectHashtag handles POST /api/hashtags/select
// @Summary Select hashtag
// @Description Replace the hashtag under the caret with the chosen project
// @Tags hashtags
// @Accept json
// @Produce json
// @Param request body SelectRequest true "Composer text, caret and project"
// @Security BearerAuth
// @Success 200 {object} hashtag.Selection
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /hashtags/select [post]
func (s *Server) SelectHashtag(c *fiber.Ctx) error {
	var req SelectRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	sel, err := s.hashtagService.Select(c.UserContext(), sessionUserID(c), req.Text, req.Caret, req.ProjectID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(sel)
}
