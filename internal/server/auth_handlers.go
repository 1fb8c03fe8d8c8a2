package server

import (
	"net/mail"
	"strings"
	"time"

	"shiplog/internal/auth"
	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	oauthStateCookie = "shiplog_oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// SessionResponse is returned whenever a token is issued or inspected.
type SessionResponse struct {
	Token   string        `json:"token,omitempty"`
	Session *auth.Session `json:"session"`
	User    *models.User  `json:"user,omitempty"`
}

// DevLoginRequest represents the development sign-in payload
type DevLoginRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// GitHubLogin handles GET /api/auth/github/login
// @Summary Start GitHub sign-in
// @Description Redirect to GitHub with a fresh OAuth state cookie
// @Tags auth
// @Produce json
// @Success 307 {string} string "Redirect to GitHub"
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/github/login [get]
func (s *Server) GitHubLogin(c *fiber.Ctx) error {
	if s.github == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewValidationError("GitHub sign-in is not configured"))
	}

	state := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/github",
		Expires:  time.Now().Add(oauthStateTTL),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect(s.github.AuthURL(state), fiber.StatusTemporaryRedirect)
}

// GitHubCallback handles GET /api/auth/github/callback
// @Summary GitHub OAuth callback
// @Description Exchange the OAuth code, upsert the user and issue a session token
// @Tags auth
// @Produce json
// @Param code query string true "OAuth code"
// @Param state query string true "OAuth state"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/github/callback [get]
func (s *Server) GitHubCallback(c *fiber.Ctx) error {
	if s.github == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewValidationError("GitHub sign-in is not configured"))
	}

	state := c.Cookies(oauthStateCookie)
	c.ClearCookie(oauthStateCookie)
	if state == "" || state != c.Query("state") {
		return models.RespondError(c, models.NewUnauthorizedError("OAuth state mismatch"))
	}

	code := c.Query("code")
	if code == "" {
		return models.RespondError(c, models.NewValidationError("Missing authorization code"))
	}

	ctx := c.UserContext()
	gh, err := s.github.Exchange(ctx, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "GitHub exchange failed", "error", err)
		return models.RespondError(c, &models.AppError{
			Code:    models.CodeUnauthorized,
			Message: "GitHub sign-in failed",
			Err:     err,
		})
	}

	user, err := s.userService.EnsureUser(ctx, service.EnsureUserInput{
		ID:        gh.UserID(),
		Email:     gh.PrimaryEmail(),
		FullName:  gh.Login,
		AvatarURL: gh.AvatarURL,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return s.signIn(c, user)
}

// DevLogin handles POST /api/auth/dev-login. It signs in by email alone and
// is not routed in production.
// @Summary Development sign-in
// @Description Sign in by email alone outside production
// @Tags auth
// @Accept json
// @Produce json
// @Param request body DevLoginRequest true "Dev login request"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/dev-login [post]
func (s *Server) DevLogin(c *fiber.Ctx) error {
	if s.config.IsProduction() {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Route", c.Path()))
	}

	var req DevLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return models.RespondError(c, models.NewValidationError("A valid email is required"))
	}

	user, err := s.userService.EnsureUser(c.UserContext(), service.EnsureUserInput{
		ID:       auth.DevUserID(email),
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return s.signIn(c, user)
}

func (s *Server) signIn(c *fiber.Ctx, user *models.User) error {
	token, session, err := s.sessions.SignIn(c.UserContext(), user.ID, user.Email)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	middleware.Logger.InfoContext(c.UserContext(), "user signed in", "user_id", user.ID)
	return c.JSON(SessionResponse{Token: token, Session: session, User: user})
}

// GetSession handles GET /api/auth/session
// @Summary Current session
// @Description Get the session and user behind the bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	session := currentSession(c)
	user, err := s.userService.GetUserByID(c.UserContext(), session.UserID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(SessionResponse{Session: session, User: user})
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh session
// @Description Issue a new token for the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	token, session, err := s.sessions.Refresh(c.UserContext())
	if err != nil {
		return models.RespondError(c, sessionError(err))
	}
	return c.JSON(SessionResponse{Token: token, Session: session})
}

// Logout handles POST /api/auth/logout
// @Summary Sign out
// @Description Revoke the current session and close its live feed sockets
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.SignOut(c.UserContext()); err != nil {
		return models.RespondError(c, sessionError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFeatureFlags handles GET /api/flags
// @Summary Feature flags
// @Description Get the feature flags evaluated for the caller
// @Tags flags
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(sessionUserID(c)))
}
