package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"shiplog/internal/models"
	"shiplog/internal/repository"
	"shiplog/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listenerSpy struct{ calls int }

func (l *listenerSpy) ProjectsChanged(context.Context) { l.calls++ }

type projectFixture struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
	posts    repository.PostRepository
	listener *listenerSpy
	svc      *ProjectService
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := &projectFixture{
		users:    repository.NewUserRepository(db),
		projects: repository.NewProjectRepository(db),
		posts:    repository.NewPostRepository(db),
		listener: &listenerSpy{},
	}
	f.svc = NewProjectService(f.projects, f.posts, f.listener)
	return f
}

func (f *projectFixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{FullName: name, Email: name + "@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestProjectService_Create(t *testing.T) {
	t.Parallel()

	f := newProjectFixture(t)
	owner := f.user(t, "ada")

	p, err := f.svc.Create(context.Background(), CreateProjectInput{
		OwnerID: owner.ID,
		Name:    " #Analytical_Engine ",
		Website: "https://example.com",
		Topics:  []string{"Math", "math", " ", "hardware"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Analytical_Engine", p.Name)
	assert.Equal(t, "analytical_engine", p.Slug)
	require.NotNil(t, p.Hashtag)
	assert.Equal(t, "#Analytical_Engine", *p.Hashtag)
	assert.Equal(t, models.Topics{"math", "hardware"}, p.Topics)
	assert.Equal(t, models.ProjectStatusActive, p.Status)
	assert.Equal(t, 1, f.listener.calls)

	stored, err := f.projects.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Topics{"math", "hardware"}, stored.Topics)
}

func TestProjectService_CreateValidation(t *testing.T) {
	t.Parallel()

	f := newProjectFixture(t)
	owner := f.user(t, "ada")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateProjectInput{Name: "x"})
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	for _, in := range []CreateProjectInput{
		{OwnerID: owner.ID, Name: "  "},
		{OwnerID: owner.ID, Name: "has space"},
		{OwnerID: owner.ID, Name: "a.b"},
		{OwnerID: owner.ID, Name: strings.Repeat("a", 65)},
		{OwnerID: owner.ID, Name: "ok", Website: "ftp://example.com"},
		{OwnerID: owner.ID, Name: "ok", Website: "not a url"},
		{OwnerID: owner.ID, Name: "ok", Topics: []string{"a", "b", "c", "d", "e", "f"}},
	} {
		_, err := f.svc.Create(ctx, in)
		assertAppErrorCode(t, err, models.CodeValidation)
	}
	assert.Zero(t, f.listener.calls)
}

func TestProjectService_Detail(t *testing.T) {
	t.Parallel()

	f := newProjectFixture(t)
	ctx := context.Background()
	owner := f.user(t, "ada")
	other := f.user(t, "bob")

	pub, err := f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "engine"})
	require.NoError(t, err)
	secret, err := f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "secret", IsPrivate: true})
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third"} {
		require.NoError(t, f.posts.Create(ctx, &models.Post{
			UserID:    owner.ID,
			Content:   content,
			ProjectID: &pub.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, f.posts.Create(ctx, &models.Post{UserID: owner.ID, Content: "unlinked"}))

	d, err := f.svc.Detail(ctx, pub.ID, other.ID)
	require.NoError(t, err)
	assert.False(t, d.CanEdit)
	assert.EqualValues(t, 3, d.Project.UpdateCount)
	require.Len(t, d.Posts, 3)
	assert.Equal(t, "third", d.Posts[0].Content)
	assert.Equal(t, "first", d.Posts[2].Content)
	require.NotNil(t, d.Project.Owner)
	assert.Equal(t, "ada", d.Project.Owner.FullName)

	d, err = f.svc.Detail(ctx, pub.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, d.CanEdit)

	_, err = f.svc.Detail(ctx, secret.ID, other.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)
	_, err = f.svc.Detail(ctx, secret.ID, "")
	assertAppErrorCode(t, err, models.CodeNotFound)

	d, err = f.svc.Detail(ctx, secret.ID, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, d.Posts)
	assert.NotNil(t, d.Posts)
}

func TestProjectService_ListsWithCounts(t *testing.T) {
	t.Parallel()

	f := newProjectFixture(t)
	ctx := context.Background()
	owner := f.user(t, "ada")
	other := f.user(t, "bob")

	a, err := f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "alpha"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "hidden", IsPrivate: true})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CreateProjectInput{OwnerID: other.ID, Name: "bobs"})
	require.NoError(t, err)
	require.NoError(t, f.posts.Create(ctx, &models.Post{UserID: owner.ID, Content: "x", ProjectID: &a.ID}))

	visible, err := f.svc.List(ctx, other.ID)
	require.NoError(t, err)
	counts := map[string]int64{}
	for _, p := range visible {
		counts[p.Name] = p.UpdateCount
	}
	assert.Equal(t, map[string]int64{"alpha": 1, "bobs": 0}, counts)

	mine, err := f.svc.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ListMine(ctx, "")
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	empty, err := f.svc.ListMine(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

func TestProjectService_Archive(t *testing.T) {
	t.Parallel()

	f := newProjectFixture(t)
	ctx := context.Background()
	owner := f.user(t, "ada")
	other := f.user(t, "bob")

	p, err := f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "engine"})
	require.NoError(t, err)
	secret, err := f.svc.Create(ctx, CreateProjectInput{OwnerID: owner.ID, Name: "secret", IsPrivate: true})
	require.NoError(t, err)
	callsBefore := f.listener.calls

	_, err = f.svc.Archive(ctx, p.ID, other.ID)
	assertAppErrorCode(t, err, models.CodeForbidden)
	_, err = f.svc.Archive(ctx, secret.ID, other.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)

	archived, err := f.svc.Archive(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusArchived, archived.Status)
	assert.Equal(t, callsBefore+1, f.listener.calls)

	_, err = f.svc.Archive(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, callsBefore+1, f.listener.calls, "archiving twice is a no-op")

	mine, err := f.svc.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "secret", mine[0].Name)
}
