package server

import (
	"shiplog/internal/models"
	"shiplog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest represents the JSON body of a new ship. Multipart
// requests carry the same fields as form values plus an optional "image" file.
type CreatePostRequest struct {
	UserID    string  `json:"user_id" form:"user_id"`
	Content   string  `json:"content" form:"content"`
	ProjectID *string `json:"project_id" form:"project_id"`
	ImageURL  *string `json:"image_url" form:"image_url"`
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Get the feed of ships, newest first
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, 0)
	posts, err := s.feedService.Feed(c.UserContext(), service.ListFeedInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Description Get a single ship by ID
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Description Ship an update, optionally with an image and linked project
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param request body CreatePostRequest true "Post request"
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 413 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{
		ClaimedUserID: req.UserID,
		Content:       req.Content,
		ProjectID:     req.ProjectID,
		ImageURL:      req.ImageURL,
	}
	if isMultipart(c) {
		in.ProjectID = optionalString(c.FormValue("project_id"))
		in.ImageURL = optionalString(c.FormValue("image_url"))
		image, err := formImage(c, "image")
		if err != nil {
			return models.RespondError(c, err)
		}
		in.Image = image
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}
