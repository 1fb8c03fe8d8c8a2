// Package seed fills the database with demo data for development. Users are
// created with the ids dev sign-in derives from their email, so every seeded
// account can be signed into with POST /api/auth/dev-login.
package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"shiplog/internal/auth"
	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/repository"
	"shiplog/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Options configures a random seed run.
type Options struct {
	NumUsers    int
	NumProjects int
	NumPosts    int
	// MaxDays spreads post times over this many days before now.
	MaxDays int
	// Seed makes the generated data reproducible. Zero picks a random seed.
	Seed int64
}

// Result counts what a run created.
type Result struct {
	Users    int
	Projects int
	Posts    int
}

// Seeder writes demo rows through the regular repositories.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	projects *service.ProjectService
	now      func() time.Time
}

func NewSeeder(db *gorm.DB) *Seeder {
	postRepo := repository.NewPostRepository(db)
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    postRepo,
		projects: service.NewProjectService(repository.NewProjectRepository(db), postRepo),
		now:      time.Now,
	}
}

// ClearAll deletes every post, project and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, model := range []any{&models.Post{}, &models.Project{}, &models.User{}} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clearing %T: %w", model, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "database cleared")
	return nil
}

// SeedRandom creates fake users, projects and posts and replays each user's
// posts to derive their streaks.
func (s *Seeder) SeedRandom(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed: at least one user is required")
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	faker := gofakeit.New(opts.Seed)
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		name := faker.Name()
		email := fmt.Sprintf("%s.%d@shiplog.dev", slug.Make(name), i)
		u, err := s.createUser(ctx, email, name, fmt.Sprintf("https://i.pravatar.cc/150?u=%s", faker.UUID()))
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	res.Users = len(users)

	projectIDs := make([]string, 0, opts.NumProjects)
	for i := 0; i < opts.NumProjects; i++ {
		owner := users[faker.Number(0, len(users)-1)]
		p, err := s.projects.Create(ctx, service.CreateProjectInput{
			OwnerID:     owner.ID,
			Name:        fmt.Sprintf("%s-%d", slug.Make(faker.AppName()), i),
			Description: faker.Sentence(12),
			Pitch:       faker.HackerPhrase(),
			Website:     faker.URL(),
			Emoji:       faker.Emoji(),
			Topics:      []string{faker.HackerNoun(), faker.HackerVerb()},
			IsPrivate:   faker.Number(1, 10) == 1,
		})
		if err != nil {
			return nil, fmt.Errorf("seed: creating project: %w", err)
		}
		if !p.IsPrivate {
			projectIDs = append(projectIDs, p.ID)
		}
	}
	res.Projects = opts.NumProjects

	now := s.now()
	for i := 0; i < opts.NumPosts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		at := now.Add(-time.Duration(faker.Number(0, opts.MaxDays*24*60)) * time.Minute)
		post := &models.Post{
			UserID:    author.ID,
			Content:   models.ShipMarker + faker.HackerPhrase(),
			CreatedAt: at,
		}
		if len(projectIDs) > 0 && faker.Bool() {
			id := projectIDs[faker.Number(0, len(projectIDs)-1)]
			post.ProjectID = &id
		}
		if faker.Number(1, 4) == 1 {
			img := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID())
			post.ImageURL = &img
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("seed: creating post: %w", err)
		}
		res.Posts++
	}

	if err := s.replayStreaks(ctx, users); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "random seed complete",
		"users", res.Users, "projects", res.Projects, "posts", res.Posts)
	return res, nil
}

func (s *Seeder) createUser(ctx context.Context, email, fullName, avatarURL string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u := &models.User{
		ID:       auth.DevUserID(email),
		Email:    email,
		FullName: fullName,
	}
	if u.FullName == "" {
		u.FullName = models.DisplayNameFromEmail(email)
	}
	if avatarURL != "" {
		u.AvatarURL = &avatarURL
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("seed: creating user %s: %w", email, err)
	}
	return u, nil
}

// replayStreaks recomputes streak counters from post history, then zeroes the
// ones already broken today.
func (s *Seeder) replayStreaks(ctx context.Context, users []*models.User) error {
	for _, u := range users {
		posts, err := s.posts.ListByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })

		u.CurrentStreak, u.LongestStreak, u.LastPostDate = 0, 0, nil
		for _, p := range posts {
			u.RecordPost(p.CreatedAt)
		}
		if err := s.users.UpdateStreak(ctx, u); err != nil {
			return err
		}
	}

	_, err := s.users.ResetBrokenStreaks(ctx, models.StreakCutoff(s.now()))
	return err
}
