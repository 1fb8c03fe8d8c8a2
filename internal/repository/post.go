package repository

import (
	"context"

	"shiplog/internal/models"
	"shiplog/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts. Reads that return
// a feed join the author and project columns a card needs.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("insert", "posts")()
	return mapError(r.db.WithContext(ctx).Omit("User", "Project").Create(post).Error, "Post", post.ID)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var post models.Post
	err := withAuthorAndProject(r.db.WithContext(ctx)).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, mapError(err, "Post", id)
	}
	return &post, nil
}

// List returns posts newest first. A non-positive limit returns all of them.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	q := withAuthorAndProject(r.db.WithContext(ctx)).Order("posts.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, mapError(err, "Post", nil)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var posts []models.Post
	err := withAuthorAndProject(r.db.WithContext(ctx)).
		Where("posts.user_id = ?", userID).
		Order("posts.created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, mapError(err, "Post", nil)
	}
	return posts, nil
}

// ListByProject returns a project's posts with their authors. Ordering is
// left to the caller.
func (r *postRepository) ListByProject(ctx context.Context, projectID string) ([]models.Post, error) {
	defer observability.TrackQuery("select", "posts")()

	var posts []models.Post
	err := withAuthor(r.db.WithContext(ctx)).
		Where("posts.project_id = ?", projectID).
		Find(&posts).Error
	if err != nil {
		return nil, mapError(err, "Post", nil)
	}
	return posts, nil
}
