package service

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"shiplog/internal/middleware"
	"shiplog/internal/models"
	"shiplog/internal/repository"

	"github.com/gosimple/slug"
)

const (
	maxProjectNameLen        = 64
	maxProjectPitchLen       = 280
	maxProjectDescriptionLen = 2000
)

// ProjectsListener is told whenever the set of linkable projects changes.
type ProjectsListener interface {
	ProjectsChanged(ctx context.Context)
}

type ProjectService struct {
	projectRepo repository.ProjectRepository
	postRepo    repository.PostRepository
	listeners   []ProjectsListener
}

type CreateProjectInput struct {
	OwnerID     string
	Name        string
	Description string
	Pitch       string
	Website     string
	Emoji       string
	Topics      []string
	IsPrivate   bool
}

// ProjectDetail is a project page: the project, its own posts newest first,
// and whether the viewer owns it.
type ProjectDetail struct {
	Project *models.Project `json:"project"`
	Posts   []models.Post   `json:"posts"`
	CanEdit bool            `json:"can_edit"`
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	postRepo repository.PostRepository,
	listeners ...ProjectsListener,
) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, postRepo: postRepo, listeners: listeners}
}

func (s *ProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.Project, error) {
	if in.OwnerID == "" {
		return nil, models.NewUnauthorizedError("You must be signed in to create a project")
	}

	name := strings.TrimPrefix(strings.TrimSpace(in.Name), "#")
	if name == "" {
		return nil, models.NewValidationError("Project name is required")
	}
	if utf8.RuneCountInString(name) > maxProjectNameLen {
		return nil, models.NewValidationError(fmt.Sprintf("Project name too long (max %d characters)", maxProjectNameLen))
	}
	if !models.ProjectNamePattern.MatchString(name) {
		return nil, models.NewValidationError("Project name may only contain letters, numbers, underscores and hyphens")
	}

	pitch := strings.TrimSpace(in.Pitch)
	if utf8.RuneCountInString(pitch) > maxProjectPitchLen {
		return nil, models.NewValidationError(fmt.Sprintf("Pitch too long (max %d characters)", maxProjectPitchLen))
	}
	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > maxProjectDescriptionLen {
		return nil, models.NewValidationError(fmt.Sprintf("Description too long (max %d characters)", maxProjectDescriptionLen))
	}

	website := strings.TrimSpace(in.Website)
	if website != "" && !isHTTPURL(website) {
		return nil, models.NewValidationError("website must be a valid http(s) URL")
	}

	topics, err := normalizeTopics(in.Topics)
	if err != nil {
		return nil, err
	}

	hashtag := "#" + name
	project := &models.Project{
		UserID:      in.OwnerID,
		Name:        name,
		Hashtag:     &hashtag,
		Slug:        slug.Make(name),
		Description: description,
		Pitch:       pitch,
		Website:     website,
		Emoji:       strings.TrimSpace(in.Emoji),
		IsPrivate:   in.IsPrivate,
		Status:      models.ProjectStatusActive,
		Topics:      topics,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "project created", "project_id", project.ID, "owner_id", in.OwnerID)
	s.notifyChanged(ctx)
	return project, nil
}

// Detail loads a project page. Private projects are reported as missing to
// everyone but their owner.
func (s *ProjectService) Detail(ctx context.Context, projectID, viewerID string) (*ProjectDetail, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.VisibleTo(viewerID) {
		return nil, models.NewNotFoundError("Project", projectID)
	}

	posts, err := s.postRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	project.UpdateCount = int64(len(posts))

	return &ProjectDetail{
		Project: project,
		Posts:   posts,
		CanEdit: viewerID != "" && viewerID == project.UserID,
	}, nil
}

// List returns every active project the viewer may see, newest first, with update counts.
func (s *ProjectService) List(ctx context.Context, viewerID string) ([]models.Project, error) {
	projects, err := s.projectRepo.ListVisible(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, projects)
}

// ListMine returns the owner's non-archived projects with update counts.
func (s *ProjectService) ListMine(ctx context.Context, ownerID string) ([]models.Project, error) {
	if ownerID == "" {
		return nil, models.NewUnauthorizedError("You must be signed in")
	}
	projects, err := s.projectRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withCounts(ctx, projects)
}

// Archive hides a project from lists and suggestions. Only the owner may archive.
func (s *ProjectService) Archive(ctx context.Context, projectID, userID string) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		if !project.VisibleTo(userID) {
			return nil, models.NewNotFoundError("Project", projectID)
		}
		return nil, models.NewForbiddenError("Only the project owner can archive it")
	}
	if project.Status == models.ProjectStatusArchived {
		return project, nil
	}

	if err := s.projectRepo.Archive(ctx, projectID); err != nil {
		return nil, err
	}
	project.Status = models.ProjectStatusArchived

	middleware.Logger.InfoContext(ctx, "project archived", "project_id", projectID)
	s.notifyChanged(ctx)
	return project, nil
}

func (s *ProjectService) withCounts(ctx context.Context, projects []models.Project) ([]models.Project, error) {
	if len(projects) == 0 {
		return []models.Project{}, nil
	}
	ids := make([]string, len(projects))
	for i := range projects {
		ids[i] = projects[i].ID
	}
	counts, err := s.projectRepo.CountPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].UpdateCount = counts[projects[i].ID]
	}
	return projects, nil
}

func (s *ProjectService) notifyChanged(ctx context.Context) {
	for _, l := range s.listeners {
		l.ProjectsChanged(ctx)
	}
}

func normalizeTopics(raw []string) (models.Topics, error) {
	seen := make(map[string]struct{}, len(raw))
	topics := models.Topics{}
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	if len(topics) > models.MaxProjectTopics {
		return nil, models.NewValidationError(fmt.Sprintf("At most %d topics are allowed", models.MaxProjectTopics))
	}
	return topics, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
