package service

import (
	"context"

	"shiplog/internal/models"
	"shiplog/internal/repository"
)

// FeedService reads the global timeline.
type FeedService struct {
	postRepo repository.PostRepository
}

type ListFeedInput struct {
	// Limit caps the page size; zero returns every post.
	Limit  int
	Offset int
}

func NewFeedService(postRepo repository.PostRepository) *FeedService {
	return &FeedService{postRepo: postRepo}
}

// Feed returns posts newest first, joined with author and project.
func (s *FeedService) Feed(ctx context.Context, in ListFeedInput) ([]models.Post, error) {
	if in.Limit < 0 || in.Offset < 0 {
		return nil, models.NewValidationError("limit and offset must not be negative")
	}
	posts, err := s.postRepo.List(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}
