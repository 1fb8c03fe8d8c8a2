package server

import (
	"shiplog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ImageUploadResponse is the API response after uploading an image.
type ImageUploadResponse struct {
	URL string `json:"url"`
}

// UploadImage handles POST /api/uploads
// @Summary Upload image
// @Description Upload a post image and get its public URL
// @Tags uploads
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image file"
// @Security BearerAuth
// @Success 201 {object} ImageUploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Router /uploads [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	in, err := readImage(file)
	if err != nil {
		return models.RespondError(c, err)
	}
	in.UserID = sessionUserID(c)

	url, err := s.imageService.Upload(c.UserContext(), *in)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ImageUploadResponse{URL: url})
}
