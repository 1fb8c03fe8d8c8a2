package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"shiplog/internal/auth"
	"shiplog/internal/middleware"
	"shiplog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	sessionLocal = "session"
	wsTicketTTL  = 30 * time.Second
)

func wsTicketKey(ticket string) string {
	return "ws_ticket:" + ticket
}

// AuthRequired rejects requests without a live session. Browsers cannot set
// headers on a WebSocket upgrade, so upgrades may present a one-shot ?ticket=
// issued by IssueWSTicket instead of a bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := s.requestToken(c)
		if err != nil {
			return models.RespondError(c, err)
		}
		if token == "" {
			return models.RespondError(c, models.NewUnauthorizedError("Missing authorization token"))
		}
		if err := s.bindSession(c, token); err != nil {
			return models.RespondError(c, err)
		}
		return c.Next()
	}
}

// OptionalAuth binds a session when a valid bearer token is present and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if err := s.bindSession(c, token); err != nil {
				middleware.Logger.DebugContext(c.UserContext(), "ignoring invalid optional token", "error", err)
			}
		}
		return c.Next()
	}
}

func (s *Server) bindSession(c *fiber.Ctx, token string) error {
	session, err := s.sessions.Authenticate(c.UserContext(), token)
	if err != nil {
		return sessionError(err)
	}

	ctx := auth.WithSession(c.UserContext(), session)
	ctx = middleware.WithUserID(ctx, session.UserID)
	c.SetUserContext(ctx)
	c.Locals("userID", session.UserID)
	c.Locals(sessionLocal, session)
	return nil
}

func (s *Server) requestToken(c *fiber.Ctx) (string, error) {
	if token := bearerToken(c); token != "" {
		return token, nil
	}
	ticket := c.Query("ticket")
	if ticket == "" || !isWebSocketUpgrade(c) {
		return "", nil
	}
	return s.redeemWSTicket(c.UserContext(), ticket)
}

func (s *Server) redeemWSTicket(ctx context.Context, ticket string) (string, error) {
	if s.redis == nil {
		return "", models.NewUnauthorizedError("WebSocket tickets are unavailable")
	}
	token, err := s.redis.GetDel(ctx, wsTicketKey(ticket)).Result()
	if err != nil || token == "" {
		return "", models.NewUnauthorizedError("Invalid or expired ticket")
	}
	return token, nil
}

// IssueWSTicket handles POST /api/ws/ticket
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errors.New("redis unavailable")))
	}

	ticket := uuid.NewString()
	err := s.redis.Set(c.UserContext(), wsTicketKey(ticket), bearerToken(c), wsTicketTTL).Err()
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func isWebSocketUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}

// sessionError maps provider failures onto the API's error codes.
func sessionError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return &models.AppError{Code: models.CodeUnauthorized, Message: "Session expired, please sign in again", Err: err}
	case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSession):
		return &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
	default:
		return models.NewInternalError(err)
	}
}

// sessionUserID returns the authenticated user id, or "" for anonymous requests.
func sessionUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

func currentSession(c *fiber.Ctx) *auth.Session {
	s, _ := c.Locals(sessionLocal).(*auth.Session)
	return s
}
