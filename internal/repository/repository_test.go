package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"shiplog/internal/models"
	"shiplog/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	users    UserRepository
	projects ProjectRepository
	posts    PostRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	return &fixture{
		db:       db,
		users:    NewUserRepository(db),
		projects: NewProjectRepository(db),
		posts:    NewPostRepository(db),
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{FullName: name, Email: name + "@example.com"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) project(t *testing.T, owner *models.User, name string, mutate ...func(*models.Project)) *models.Project {
	t.Helper()
	p := &models.Project{UserID: owner.ID, Name: name, Description: name + " description"}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, f.projects.Create(context.Background(), p))
	return p
}

func (f *fixture) post(t *testing.T, author *models.User, content string, projectID *string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{UserID: author.ID, Content: content, ProjectID: projectID, CreatedAt: at}
	require.NoError(t, f.posts.Create(context.Background(), p))
	return p
}

func names(projects []models.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Name)
	}
	return out
}

func private(p *models.Project)  { p.IsPrivate = true }
func archived(p *models.Project) { p.Status = models.ProjectStatusArchived }

func TestUserRepository_CreateGetAndDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.user(t, "ada")
	got, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)

	err = f.users.Create(ctx, &models.User{ID: u.ID, Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = f.users.GetByID(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_StreaksAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

	active := f.user(t, "active")
	active.RecordPost(now)
	require.NoError(t, f.users.UpdateStreak(ctx, active))

	lapsed := f.user(t, "lapsed")
	lapsed.RecordPost(now.AddDate(0, 0, -3))
	lapsed.RecordPost(now.AddDate(0, 0, -2))
	require.NoError(t, f.users.UpdateStreak(ctx, lapsed))

	f.user(t, "idle")

	top, err := f.users.TopStreaks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "lapsed", top[0].FullName)
	assert.Equal(t, 2, top[0].CurrentStreak)

	n, err := f.users.ResetBrokenStreaks(ctx, models.StreakCutoff(now))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.users.GetByID(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentStreak)
	assert.Equal(t, 2, got.LongestStreak)

	got, err = f.users.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStreak)

	err = f.users.UpdateStreak(ctx, &models.User{ID: "missing"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestProjectRepository_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	other := f.user(t, "other")
	f.project(t, owner, "zeta")
	f.project(t, owner, "alpha")
	f.project(t, owner, "secret", private)
	f.project(t, owner, "old", archived)
	f.project(t, other, "beta")

	linkable, err := f.projects.ListLinkable(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "secret", "zeta"}, names(linkable))

	linkable, err = f.projects.ListLinkable(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, names(linkable))

	visible, err := f.projects.ListVisible(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta", "zeta"}, names(visible))
	for _, p := range visible {
		require.NotNil(t, p.Owner)
		assert.NotEmpty(t, p.Owner.FullName)
	}

	mine, err := f.projects.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"zeta", "alpha", "secret"}, names(mine))
}

func TestProjectRepository_SearchByNamePrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	for _, n := range []string{"project-x", "Prompt", "proto_2", "protox2", "zeta", "pro-old"} {
		if n == "pro-old" {
			f.project(t, owner, n, archived)
			continue
		}
		f.project(t, owner, n)
	}

	got, err := f.projects.SearchByNamePrefix(ctx, "PRO", owner.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"project-x", "Prompt", "proto_2", "protox2"}, names(got))

	got, err = f.projects.SearchByNamePrefix(ctx, "proto_", owner.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"proto_2"}, names(got), "underscore is matched literally")

	got, err = f.projects.SearchByNamePrefix(ctx, "", owner.ID, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.projects.SearchByNamePrefix(ctx, "nomatch", owner.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProjectRepository_GetCountAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner")
	p := f.project(t, owner, "app", func(p *models.Project) { p.Topics = models.Topics{"go", "web"} })
	empty := f.project(t, owner, "quiet")

	now := time.Now()
	f.post(t, owner, "one", &p.ID, now)
	f.post(t, owner, "two", &p.ID, now)
	f.post(t, owner, "unlinked", nil, now)

	got, err := f.projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Topics{"go", "web"}, got.Topics)
	assert.Equal(t, models.ProjectStatusActive, got.Status)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "owner", got.Owner.FullName)

	counts, err := f.projects.CountPosts(ctx, []string{p.ID, empty.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{p.ID: 2}, counts)

	require.NoError(t, f.projects.Archive(ctx, p.ID))
	got, err = f.projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusArchived, got.Status)

	assert.True(t, models.IsCode(f.projects.Archive(ctx, "missing"), models.CodeNotFound))
}

func TestPostRepository_JoinedReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	author := f.user(t, "ada")
	p := f.project(t, author, "app")
	base := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	older := f.post(t, author, "older", nil, base.Add(-time.Hour))
	newer := f.post(t, author, "newer #app", &p.ID, base)

	list, err := f.posts.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	require.NotNil(t, list[0].User)
	assert.Equal(t, "ada", list[0].User.FullName)
	require.NotNil(t, list[0].Project)
	assert.Equal(t, "app", list[0].Project.Name)
	assert.Nil(t, list[1].Project)

	page, err := f.posts.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)

	got, err := f.posts.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "app", got.Project.Name)

	byUser, err := f.posts.ListByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byProject, err := f.posts.ListByProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	assert.NotNil(t, byProject[0].User)
	assert.Nil(t, byProject[0].Project)

	_, err = f.posts.GetByID(ctx, "missing")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_MissingAuthorLeavesNilUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.db.Exec("PRAGMA foreign_keys = OFF").Error)
	orphan := &models.Post{UserID: "deleted-user", Content: "still here", CreatedAt: time.Now()}
	require.NoError(t, f.posts.Create(ctx, orphan))

	got, err := f.posts.GetByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, got.User)
}

func TestRepositories_StoreFailures(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	ctx := context.Background()
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1`)).
		WithArgs("u1", 1).
		WillReturnError(boom)
	_, err := NewUserRepository(db).GetByID(ctx, "u1")
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" ORDER BY posts.created_at DESC`)).
		WillReturnError(boom)
	_, err = NewPostRepository(db).List(ctx, 0, 0)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(`SELECT \* FROM "projects" WHERE .*projects\.is_private = \$1 OR projects\.user_id = \$2.* AND projects\.status <> \$3 AND LOWER\(projects\.name\) LIKE \$4 ESCAPE '\\' ORDER BY LOWER\(projects\.name\) ASC, projects\.name ASC LIMIT \$5`).
		WithArgs(false, "u1", models.ProjectStatusArchived, `pro\_%`, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("p1", "pro_x"))
	got, err := NewProjectRepository(db).SearchByNamePrefix(ctx, "Pro_", "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"pro_x"}, names(got))

	assert.NoError(t, mock.ExpectationsWereMet())
}
