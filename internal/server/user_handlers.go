package server

import (
	"shiplog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
// @Summary My profile
// @Description Get the caller's profile including email
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Profile
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.userService.Profile(c.UserContext(), "", sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(profile)
}

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Description Get a user's public profile and ships
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	profile, err := s.userService.Profile(c.UserContext(), c.Params("id"), sessionUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(profile)
}

// GetTopStreaks handles GET /api/streaks
// @Summary Top streaks
// @Description Get the users with the longest current streaks
// @Tags users
// @Produce json
// @Success 200 {array} models.PublicUser
// @Router /streaks [get]
func (s *Server) GetTopStreaks(c *fiber.Ctx) error {
	users, err := s.userService.TopStreaks(c.UserContext())
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(users)
}
