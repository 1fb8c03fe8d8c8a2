package service

import (
	"context"

	"shiplog/internal/cache"
	"shiplog/internal/featureflags"
	"shiplog/internal/hashtag"
	"shiplog/internal/models"
	"shiplog/internal/repository"
)

// HashtagService answers autocomplete lookups for the composer. Users in the
// hashtag_snapshot rollout get the snapshot strategy, everyone else the
// cached prefix query.
type HashtagService struct {
	projectRepo repository.ProjectRepository
	prefix      *hashtag.CachedSource
	snapshot    *hashtag.SnapshotSource
	flags       *featureflags.Manager
	pageSize    int
}

// Suggestion is the result of one lookup for the text and caret a client sent.
type Suggestion struct {
	Token hashtag.Token `json:"token"`
	Panel hashtag.Panel `json:"panel"`
}

func NewHashtagService(
	projectRepo repository.ProjectRepository,
	store *cache.Store,
	flags *featureflags.Manager,
	pageSize int,
) *HashtagService {
	if pageSize <= 0 {
		pageSize = hashtag.DefaultLimit
	}
	return &HashtagService{
		projectRepo: projectRepo,
		prefix:      hashtag.NewCachedSource(hashtag.NewRepositorySource(projectRepo), store),
		snapshot:    hashtag.NewSnapshotSource(projectRepo),
		flags:       flags,
		pageSize:    pageSize,
	}
}

// Source returns the candidate source used for viewerID.
func (s *HashtagService) Source(viewerID string) hashtag.Source {
	if s.flags.Enabled(featureflags.HashtagSnapshot, viewerID) {
		return s.snapshot
	}
	return s.prefix
}

// Suggest detects the hashtag under the caret and looks up matching projects.
// The panel is hidden when the caret is not inside a hashtag.
func (s *HashtagService) Suggest(ctx context.Context, viewerID, text string, caret int) (*Suggestion, error) {
	tok := hashtag.Detect(text, caret)
	if !tok.Active {
		return &Suggestion{Token: tok}, nil
	}

	items, err := s.Source(viewerID).Suggest(ctx, hashtag.Query{
		Term:     tok.Term,
		ViewerID: viewerID,
		Limit:    s.pageSize,
	})
	if err != nil {
		return nil, err
	}
	return &Suggestion{Token: tok, Panel: hashtag.PanelFor(tok.Term, items)}, nil
}

// Select links projectID to the hashtag under the caret and rewrites the text.
func (s *HashtagService) Select(ctx context.Context, viewerID, text string, caret int, projectID string) (*hashtag.Selection, error) {
	if projectID == "" {
		return nil, models.NewValidationError("project_id is required")
	}
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.VisibleTo(viewerID) {
		return nil, models.NewNotFoundError("Project", projectID)
	}
	if !project.Linkable(viewerID) {
		return nil, models.NewValidationError("Cannot link an archived project")
	}

	sel, err := hashtag.Apply(text, caret, hashtag.CandidateFrom(*project))
	if err != nil {
		return nil, models.NewValidationError("No hashtag at the caret")
	}
	return &sel, nil
}

// ProjectsChanged drops every cached suggestion.
func (s *HashtagService) ProjectsChanged(ctx context.Context) {
	s.prefix.ProjectsChanged(ctx)
	s.snapshot.ProjectsChanged(ctx)
}
