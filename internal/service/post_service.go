package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"shiplog/internal/auth"
	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/notifications"
	"shiplog/internal/observability"
	"shiplog/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo    repository.PostRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	images      *ImageService
	sessions    auth.Provider
	notifier    *notifications.Notifier
	now         func() time.Time
}

type CreatePostInput struct {
	// ClaimedUserID is the user the client believes is signed in. It must
	// match the live session.
	ClaimedUserID string
	Content       string
	ProjectID     *string
	ImageURL      *string
	// Image is uploaded before the insert when present; it replaces ImageURL.
	Image *UploadImageInput
}

func NewPostService(
	postRepo repository.PostRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	images *ImageService,
	sessions auth.Provider,
	notifier *notifications.Notifier,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		images:      images,
		sessions:    sessions,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// CreatePost stores a ship for the signed-in user and returns it joined with
// author and project. Nothing is written unless the live session belongs to
// in.ClaimedUserID.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost",
		attribute.Bool("post.has_image", in.Image != nil),
		attribute.Bool("post.has_project", trimmedPtr(in.ProjectID) != nil),
	)
	post, err := s.createPost(ctx, in)
	observability.EndSpan(span, err)
	return post, err
}

func (s *PostService) createPost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxPostContentLength {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}
	if in.ClaimedUserID == "" {
		return nil, models.NewValidationError("You must be signed in to post")
	}

	session, err := s.sessions.CurrentSession(ctx)
	if err != nil {
		return nil, &models.AppError{
			Code:    models.CodeUnauthorized,
			Message: "Session expired, please sign in again",
			Err:     err,
		}
	}
	if session.UserID != in.ClaimedUserID {
		middleware.Logger.WarnContext(ctx, "post rejected: session does not match claimed user",
			"session_user_id", session.UserID, "claimed_user_id", in.ClaimedUserID)
		return nil, models.NewIdentityMismatchError()
	}

	projectID, err := s.linkableProject(ctx, in.ProjectID, session.UserID)
	if err != nil {
		return nil, err
	}

	imageURL := trimmedPtr(in.ImageURL)
	if imageURL != nil && in.Image == nil {
		if s.images == nil || !s.images.OwnsURL(session.UserID, *imageURL) {
			return nil, models.NewValidationError("Image must be uploaded before posting")
		}
	}
	if in.Image != nil {
		if s.images == nil {
			return nil, models.NewInternalError(errors.New("image uploads are not configured"))
		}
		upload := *in.Image
		upload.UserID = session.UserID
		url, err := s.images.Upload(ctx, upload)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	if !strings.HasPrefix(content, models.ShipMarker) {
		content = models.ShipMarker + content
	}
	post := &models.Post{
		UserID:    session.UserID,
		Content:   content,
		ProjectID: projectID,
		ImageURL:  imageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(observability.LinkedLabel(projectID != nil)).Inc()

	s.recordStreak(ctx, session.UserID)

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to re-read created post", "post_id", post.ID, "error", err)
		created = post
	}

	if err := s.notifier.PublishPost(ctx, created); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish created post", "post_id", post.ID, "error", err)
	}
	return created, nil
}

// linkableProject resolves the optional project link. Projects the author
// cannot see are reported as missing.
func (s *PostService) linkableProject(ctx context.Context, id *string, userID string) (*string, error) {
	pid := trimmedPtr(id)
	if pid == nil {
		return nil, nil
	}
	project, err := s.projectRepo.GetByID(ctx, *pid)
	if err != nil {
		return nil, err
	}
	if !project.VisibleTo(userID) {
		return nil, models.NewNotFoundError("Project", *pid)
	}
	if project.Status == models.ProjectStatusArchived {
		return nil, models.NewValidationError("Cannot post to an archived project")
	}
	return &project.ID, nil
}

// recordStreak advances the author's streak. The post is already stored, so
// failures are only logged.
func (s *PostService) recordStreak(ctx context.Context, userID string) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "streak update skipped", "user_id", userID, "error", err)
		return
	}
	user.RecordPost(s.now())
	if err := s.userRepo.UpdateStreak(ctx, user); err != nil {
		middleware.Logger.WarnContext(ctx, "streak update failed", "user_id", userID, "error", err)
	}
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
