package repository

import (
	"context"
	"strings"

	"shiplog/internal/models"
	"shiplog/internal/observability"

	"gorm.io/gorm"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	ListVisible(ctx context.Context, viewerID string) ([]models.Project, error)
	ListLinkable(ctx context.Context, viewerID string) ([]models.Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error)
	SearchByNamePrefix(ctx context.Context, prefix, viewerID string, limit int) ([]models.Project, error)
	CountPosts(ctx context.Context, projectIDs []string) (map[string]int64, error)
	Archive(ctx context.Context, id string) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	defer observability.TrackQuery("insert", "projects")()
	return mapError(r.db.WithContext(ctx).Create(project).Error, "Project", project.Name)
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	defer observability.TrackQuery("select", "projects")()

	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Owner", ownerColumns).
		Where("projects.id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, mapError(err, "Project", id)
	}
	return &project, nil
}

// ListVisible returns every non-archived project viewerID may see, newest first.
func (r *projectRepository) ListVisible(ctx context.Context, viewerID string) ([]models.Project, error) {
	defer observability.TrackQuery("select", "projects")()

	var projects []models.Project
	q := notArchived(visibleTo(r.db.WithContext(ctx), viewerID))
	err := q.Preload("Owner", ownerColumns).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, mapError(err, "Project", nil)
	}
	return projects, nil
}

// ListLinkable returns every project viewerID may tag a post with, ordered by name.
func (r *projectRepository) ListLinkable(ctx context.Context, viewerID string) ([]models.Project, error) {
	defer observability.TrackQuery("select", "projects")()

	var projects []models.Project
	err := notArchived(visibleTo(r.db.WithContext(ctx), viewerID)).
		Order("LOWER(projects.name) ASC, projects.name ASC").
		Find(&projects).Error
	if err != nil {
		return nil, mapError(err, "Project", nil)
	}
	return projects, nil
}

func (r *projectRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	defer observability.TrackQuery("select", "projects")()

	var projects []models.Project
	err := notArchived(r.db.WithContext(ctx)).
		Where("projects.user_id = ?", ownerID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, mapError(err, "Project", nil)
	}
	return projects, nil
}

// SearchByNamePrefix matches names starting with prefix, case-insensitively,
// among the projects viewerID may link.
func (r *projectRepository) SearchByNamePrefix(ctx context.Context, prefix, viewerID string, limit int) ([]models.Project, error) {
	defer observability.TrackQuery("select", "projects")()

	pattern := escapeLike(strings.ToLower(prefix)) + "%"
	var projects []models.Project
	err := notArchived(visibleTo(r.db.WithContext(ctx), viewerID)).
		Where(`LOWER(projects.name) LIKE ? ESCAPE '\'`, pattern).
		Order("LOWER(projects.name) ASC, projects.name ASC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, mapError(err, "Project", nil)
	}
	return projects, nil
}

// CountPosts returns the number of posts linked to each project id.
// Projects without posts are absent from the map.
func (r *projectRepository) CountPosts(ctx context.Context, projectIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}
	defer observability.TrackQuery("count", "posts")()

	var rows []struct {
		ProjectID string
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("project_id, COUNT(*) AS count").
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err, "Post", nil)
	}
	for _, row := range rows {
		counts[row.ProjectID] = row.Count
	}
	return counts, nil
}

func (r *projectRepository) Archive(ctx context.Context, id string) error {
	defer observability.TrackQuery("update", "projects")()

	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", id).
		Update("status", models.ProjectStatusArchived)
	if res.Error != nil {
		return mapError(res.Error, "Project", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Project", id)
	}
	return nil
}
