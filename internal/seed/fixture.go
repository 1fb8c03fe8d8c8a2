package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixture []byte

// Fixture is a hand-written data set. Posts name their project by name; the
// project may belong to any user in the fixture.
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

type FixtureUser struct {
	Email     string           `yaml:"email"`
	FullName  string           `yaml:"full_name"`
	AvatarURL string           `yaml:"avatar_url"`
	Projects  []FixtureProject `yaml:"projects"`
	Posts     []FixturePost    `yaml:"posts"`
}

type FixtureProject struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Pitch       string   `yaml:"pitch"`
	Website     string   `yaml:"website"`
	Emoji       string   `yaml:"emoji"`
	Topics      []string `yaml:"topics"`
	Private     bool     `yaml:"private"`
	Archived    bool     `yaml:"archived"`
}

type FixturePost struct {
	Content  string `yaml:"content"`
	Project  string `yaml:"project"`
	ImageURL string `yaml:"image_url"`
	DaysAgo  int    `yaml:"days_ago"`
	HoursAgo int    `yaml:"hours_ago"`
}

// LoadFixture decodes a YAML fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("seed: decoding fixture: %w", err)
	}
	return &fx, nil
}

// DemoFixture is the data set bundled with the seeder.
func DemoFixture() (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(demoFixture, &fx); err != nil {
		return nil, fmt.Errorf("seed: decoding demo fixture: %w", err)
	}
	return &fx, nil
}

// ApplyFixture creates every user, then every project, then every post, so
// posts may reference projects declared later in the file.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (*Result, error) {
	res := &Result{}
	users := make([]*models.User, 0, len(fx.Users))
	for _, fu := range fx.Users {
		u, err := s.createUser(ctx, fu.Email, fu.FullName, fu.AvatarURL)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	res.Users = len(users)

	projectIDs := make(map[string]string)
	for i, fu := range fx.Users {
		for _, fp := range fu.Projects {
			p, err := s.projects.Create(ctx, service.CreateProjectInput{
				OwnerID:     users[i].ID,
				Name:        fp.Name,
				Description: fp.Description,
				Pitch:       fp.Pitch,
				Website:     fp.Website,
				Emoji:       fp.Emoji,
				Topics:      fp.Topics,
				IsPrivate:   fp.Private,
			})
			if err != nil {
				return nil, fmt.Errorf("seed: project %q: %w", fp.Name, err)
			}
			projectIDs[p.Name] = p.ID
			res.Projects++

			if fp.Archived {
				if _, err := s.projects.Archive(ctx, p.ID, users[i].ID); err != nil {
					return nil, fmt.Errorf("seed: archiving %q: %w", fp.Name, err)
				}
			}
		}
	}

	now := s.now()
	for i, fu := range fx.Users {
		for _, fp := range fu.Posts {
			post := &models.Post{
				UserID:    users[i].ID,
				Content:   models.ShipMarker + fp.Content,
				CreatedAt: now.AddDate(0, 0, -fp.DaysAgo).Add(-time.Duration(fp.HoursAgo) * time.Hour),
			}
			if fp.Project != "" {
				id, ok := projectIDs[fp.Project]
				if !ok {
					return nil, fmt.Errorf("seed: post by %s references unknown project %q", fu.Email, fp.Project)
				}
				post.ProjectID = &id
			}
			if fp.ImageURL != "" {
				img := fp.ImageURL
				post.ImageURL = &img
			}
			if err := s.posts.Create(ctx, post); err != nil {
				return nil, fmt.Errorf("seed: creating post: %w", err)
			}
			res.Posts++
		}
	}

	if err := s.replayStreaks(ctx, users); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "fixture applied",
		"users", res.Users, "projects", res.Projects, "posts", res.Posts)
	return res, nil
}
