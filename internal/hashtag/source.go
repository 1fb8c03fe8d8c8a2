package hashtag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"shiplog/internal/cache"
	"shiplog/internal/models"
	"shiplog/internal/observability"
)

// DefaultLimit caps the number of suggestions shown.
const DefaultLimit = 10

// Candidate is a project offered as a completion.
type Candidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji,omitempty"`
	Description string `json:"description,omitempty"`
}

// CandidateFrom converts a project row.
func CandidateFrom(p models.Project) Candidate {
	return Candidate{ID: p.ID, Name: p.Name, Emoji: p.Emoji, Description: p.Description}
}

// Query asks a Source for projects matching Term that ViewerID may link.
type Query struct {
	Term     string
	ViewerID string
	Limit    int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Source returns candidates ordered by name, at most q.Limit of them.
type Source interface {
	Suggest(ctx context.Context, q Query) ([]Candidate, error)
}

// PrefixFinder looks up linkable projects whose name starts with a prefix.
type PrefixFinder interface {
	SearchByNamePrefix(ctx context.Context, prefix, viewerID string, limit int) ([]models.Project, error)
}

// RepositorySource runs a case-insensitive prefix query per keystroke.
type RepositorySource struct {
	finder PrefixFinder
}

func NewRepositorySource(finder PrefixFinder) *RepositorySource {
	return &RepositorySource{finder: finder}
}

func (s *RepositorySource) Suggest(ctx context.Context, q Query) ([]Candidate, error) {
	projects, err := s.finder.SearchByNamePrefix(ctx, q.Term, q.ViewerID, q.limit())
	if err != nil {
		observability.HashtagQueries.WithLabelValues("prefix", "error").Inc()
		return nil, err
	}
	observability.HashtagQueries.WithLabelValues("prefix", "ok").Inc()

	out := make([]Candidate, 0, len(projects))
	for _, p := range projects {
		out = append(out, CandidateFrom(p))
	}
	return out, nil
}

// VisibleLister lists every project a viewer may link.
type VisibleLister interface {
	ListLinkable(ctx context.Context, viewerID string) ([]models.Project, error)
}

// SnapshotSource loads a viewer's linkable projects once and filters them
// locally by case-insensitive substring on each keystroke.
type SnapshotSource struct {
	lister VisibleLister

	mu        sync.Mutex
	snapshots map[string][]Candidate
}

func NewSnapshotSource(lister VisibleLister) *SnapshotSource {
	return &SnapshotSource{lister: lister, snapshots: make(map[string][]Candidate)}
}

func (s *SnapshotSource) Suggest(ctx context.Context, q Query) ([]Candidate, error) {
	all, err := s.snapshot(ctx, q.ViewerID)
	if err != nil {
		observability.HashtagQueries.WithLabelValues("snapshot", "error").Inc()
		return nil, err
	}
	observability.HashtagQueries.WithLabelValues("snapshot", "ok").Inc()

	term := strings.ToLower(q.Term)
	out := make([]Candidate, 0, q.limit())
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
			if len(out) == q.limit() {
				break
			}
		}
	}
	return out, nil
}

func (s *SnapshotSource) snapshot(ctx context.Context, viewerID string) ([]Candidate, error) {
	s.mu.Lock()
	cached, ok := s.snapshots[viewerID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	projects, err := s.lister.ListLinkable(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	list := make([]Candidate, 0, len(projects))
	for _, p := range projects {
		list = append(list, CandidateFrom(p))
	}
	sortByName(list)

	s.mu.Lock()
	s.snapshots[viewerID] = list
	s.mu.Unlock()
	return list, nil
}

// ProjectsChanged drops every snapshot.
func (s *SnapshotSource) ProjectsChanged(context.Context) {
	s.mu.Lock()
	s.snapshots = make(map[string][]Candidate)
	s.mu.Unlock()
}

// CachedSource serves another Source through Redis. Entries are keyed by the
// project-list version, so bumping it invalidates every cached suggestion.
type CachedSource struct {
	next  Source
	store *cache.Store
}

func NewCachedSource(next Source, store *cache.Store) *CachedSource {
	return &CachedSource{next: next, store: store}
}

func (s *CachedSource) Suggest(ctx context.Context, q Query) ([]Candidate, error) {
	if !s.store.Enabled() {
		return s.next.Suggest(ctx, q)
	}

	version := s.store.Version(ctx, cache.ProjectsVersionKey)
	key := cache.SuggestionKey(version, q.ViewerID, strings.ToLower(q.Term), q.limit())

	var out []Candidate
	err := s.store.Aside(ctx, key, &out, cache.SuggestionTTL, func() error {
		var err error
		out, err = s.next.Suggest(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) > q.limit() {
		out = out[:q.limit()]
	}
	return out, nil
}

// ProjectsChanged bumps the project-list version.
func (s *CachedSource) ProjectsChanged(ctx context.Context) {
	_ = s.store.Bump(ctx, cache.ProjectsVersionKey)
}

func sortByName(list []Candidate) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := strings.ToLower(list[i].Name), strings.ToLower(list[j].Name)
		if a != b {
			return a < b
		}
		return list[i].Name < list[j].Name
	})
}
