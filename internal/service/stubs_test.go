package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"shiplog/internal/auth"
	"shiplog/internal/models"
	"shiplog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, string) (*models.Post, error)
	listFn          func(context.Context, int, int) ([]models.Post, error)
	listByUserFn    func(context.Context, string) ([]models.Post, error)
	listByProjectFn func(context.Context, string) ([]models.Post, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *postRepoStub) ListByProject(ctx context.Context, projectID string) ([]models.Post, error) {
	return s.listByProjectFn(ctx, projectID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:       func(_ context.Context, _ string) (*models.Post, error) { return &models.Post{}, nil },
		listFn:          func(_ context.Context, _, _ int) ([]models.Post, error) { return nil, nil },
		listByUserFn:    func(_ context.Context, _ string) ([]models.Post, error) { return nil, nil },
		listByProjectFn: func(_ context.Context, _ string) ([]models.Post, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn            func(context.Context, string) (*models.User, error)
	createFn             func(context.Context, *models.User) error
	updateStreakFn       func(context.Context, *models.User) error
	topStreaksFn         func(context.Context, int) ([]models.PublicUser, error)
	resetBrokenStreaksFn func(context.Context, time.Time) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateStreak(ctx context.Context, user *models.User) error {
	return s.updateStreakFn(ctx, user)
}
func (s *userRepoStub) TopStreaks(ctx context.Context, limit int) ([]models.PublicUser, error) {
	return s.topStreaksFn(ctx, limit)
}
func (s *userRepoStub) ResetBrokenStreaks(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.resetBrokenStreaksFn(ctx, cutoff)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		createFn:             func(_ context.Context, _ *models.User) error { return nil },
		updateStreakFn:       func(_ context.Context, _ *models.User) error { return nil },
		topStreaksFn:         func(_ context.Context, _ int) ([]models.PublicUser, error) { return nil, nil },
		resetBrokenStreaksFn: func(_ context.Context, _ time.Time) (int64, error) { return 0, nil },
	}
}

// projectRepoStub is a stub for repository.ProjectRepository.
type projectRepoStub struct {
	createFn             func(context.Context, *models.Project) error
	getByIDFn            func(context.Context, string) (*models.Project, error)
	listVisibleFn        func(context.Context, string) ([]models.Project, error)
	listLinkableFn       func(context.Context, string) ([]models.Project, error)
	listByOwnerFn        func(context.Context, string) ([]models.Project, error)
	searchByNamePrefixFn func(context.Context, string, string, int) ([]models.Project, error)
	countPostsFn         func(context.Context, []string) (map[string]int64, error)
	archiveFn            func(context.Context, string) error
}

func (s *projectRepoStub) Create(ctx context.Context, project *models.Project) error {
	return s.createFn(ctx, project)
}
func (s *projectRepoStub) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return s.getByIDFn(ctx, id)
}
func (s *projectRepoStub) ListVisible(ctx context.Context, viewerID string) ([]models.Project, error) {
	return s.listVisibleFn(ctx, viewerID)
}
func (s *projectRepoStub) ListLinkable(ctx context.Context, viewerID string) ([]models.Project, error) {
	return s.listLinkableFn(ctx, viewerID)
}
func (s *projectRepoStub) ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	return s.listByOwnerFn(ctx, ownerID)
}
func (s *projectRepoStub) SearchByNamePrefix(ctx context.Context, prefix, viewerID string, limit int) ([]models.Project, error) {
	return s.searchByNamePrefixFn(ctx, prefix, viewerID, limit)
}
func (s *projectRepoStub) CountPosts(ctx context.Context, ids []string) (map[string]int64, error) {
	return s.countPostsFn(ctx, ids)
}
func (s *projectRepoStub) Archive(ctx context.Context, id string) error {
	return s.archiveFn(ctx, id)
}

func noopProjectRepo() *projectRepoStub {
	return &projectRepoStub{
		createFn: func(_ context.Context, _ *models.Project) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Project, error) {
			return nil, models.NewNotFoundError("Project", id)
		},
		listVisibleFn:        func(_ context.Context, _ string) ([]models.Project, error) { return nil, nil },
		listLinkableFn:       func(_ context.Context, _ string) ([]models.Project, error) { return nil, nil },
		listByOwnerFn:        func(_ context.Context, _ string) ([]models.Project, error) { return nil, nil },
		searchByNamePrefixFn: func(_ context.Context, _, _ string, _ int) ([]models.Project, error) { return nil, nil },
		countPostsFn:         func(_ context.Context, _ []string) (map[string]int64, error) { return map[string]int64{}, nil },
		archiveFn:            func(_ context.Context, _ string) error { return nil },
	}
}

// sessionStub is a stub for auth.Provider.
type sessionStub struct {
	session *auth.Session
	err     error
}

func (s *sessionStub) CurrentSession(context.Context) (*auth.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil {
		return nil, auth.ErrNoSession
	}
	return s.session, nil
}
func (s *sessionStub) OnSessionChange(context.Context, func(auth.Event)) (func(), error) {
	return func() {}, nil
}
func (s *sessionStub) SignOut(context.Context) error { return nil }

func signedIn(userID string) *sessionStub {
	return &sessionStub{session: &auth.Session{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}}
}

// storeStub is a stub for storage.Store.
type storeStub struct {
	uploadFn  func(context.Context, string, []byte, storage.UploadOptions) error
	publicURL func(string) string
}

func (s *storeStub) Upload(ctx context.Context, path string, body io.Reader, opts storage.UploadOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return s.uploadFn(ctx, path, data, opts)
}
func (s *storeStub) PublicURL(path string) string {
	return s.publicURL(path)
}
func (s *storeStub) PathOf(publicURL string) (string, bool) {
	const base = "https://cdn.example.com/"
	if !strings.HasPrefix(publicURL, base) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, base), true
}

func noopStore() *storeStub {
	return &storeStub{
		uploadFn:  func(_ context.Context, _ string, _ []byte, _ storage.UploadOptions) error { return nil },
		publicURL: func(path string) string { return "https://cdn.example.com/" + path },
	}
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func strPtr(s string) *string { return &s }
