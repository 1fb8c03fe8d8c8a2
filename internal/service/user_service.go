package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/observability"
	"shiplog/internal/repository"
	"shiplog/internal/routes"
)

// TopStreaksLimit is the size of the streak leaderboard.
const TopStreaksLimit = 20

type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	now      func() time.Time
}

type EnsureUserInput struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// Profile is a user together with their posts, newest first. Email is only
// set when the viewer owns the profile.
type Profile struct {
	User  *models.PublicUser `json:"user"`
	Email string             `json:"email,omitempty"`
	Posts []models.Post      `json:"posts"`
}

func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo, now: time.Now}
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// EnsureUser returns the user row for a signed-in identity, creating it on
// first sign-in. A concurrent sign-in that inserts first wins; the row is then
// re-read.
func (s *UserService) EnsureUser(ctx context.Context, in EnsureUserInput) (*models.User, error) {
	if in.ID == "" {
		return nil, models.NewValidationError("Invalid user")
	}

	user, err := s.userRepo.GetByID(ctx, in.ID)
	if err == nil {
		return user, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(in.FullName)
	if name == "" {
		name = models.DisplayNameFromEmail(in.Email)
	}
	user = &models.User{
		ID:       in.ID,
		Email:    strings.TrimSpace(in.Email),
		FullName: name,
	}
	if avatar := strings.TrimSpace(in.AvatarURL); avatar != "" {
		user.AvatarURL = &avatar
	}

	err = s.userRepo.Create(ctx, user)
	switch {
	case err == nil:
		middleware.Logger.InfoContext(ctx, "user created", "user_id", user.ID)
		return user, nil
	case errors.Is(err, repository.ErrDuplicate):
		return s.userRepo.GetByID(ctx, in.ID)
	default:
		return nil, err
	}
}

// Profile loads the user named by the route, falling back to the session
// user. Without either it returns models.ErrNoIdentity.
func (s *UserService) Profile(ctx context.Context, routeUserID, sessionUserID string) (*Profile, error) {
	target, err := routes.ResolveProfileTarget(routeUserID, sessionUserID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, target)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByUser(ctx, target)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	profile := &Profile{User: user.Public(), Posts: posts}
	if sessionUserID != "" && sessionUserID == user.ID {
		profile.Email = user.Email
	}
	return profile, nil
}

func (s *UserService) TopStreaks(ctx context.Context) ([]models.PublicUser, error) {
	return s.userRepo.TopStreaks(ctx, TopStreaksLimit)
}

// ResetBrokenStreaks zeroes every streak whose last post is older than yesterday.
func (s *UserService) ResetBrokenStreaks(ctx context.Context) (int64, error) {
	cutoff := models.StreakCutoff(s.now())
	n, err := s.userRepo.ResetBrokenStreaks(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	observability.StreaksReset.Add(float64(n))
	middleware.Logger.InfoContext(ctx, "broken streaks reset", "count", n, "cutoff", cutoff)
	return n, nil
}
