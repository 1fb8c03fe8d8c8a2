package hashtag

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcSource func(ctx context.Context, q Query) ([]Candidate, error)

func (f funcSource) Suggest(ctx context.Context, q Query) ([]Candidate, error) {
	return f(ctx, q)
}

func catalog(all ...string) funcSource {
	return func(_ context.Context, q Query) ([]Candidate, error) {
		var out []Candidate
		for _, n := range all {
			if strings.HasPrefix(strings.ToLower(n), strings.ToLower(q.Term)) {
				out = append(out, Candidate{ID: "id-" + n, Name: n})
			}
		}
		return out, nil
	}
}

func TestAutocomplete_ShowsListAndEmptyStates(t *testing.T) {
	t.Parallel()

	ac := NewAutocomplete(catalog("project-x", "prompt", "zeta"), "u1")
	ctx := context.Background()

	panel, err := ac.Update(ctx, "hello #pro", 10)
	require.NoError(t, err)
	assert.Equal(t, PanelList, panel.State)
	assert.Equal(t, "pro", panel.Term)
	assert.Equal(t, []string{"project-x", "prompt"}, names(panel.Items))

	panel, err = ac.Update(ctx, "#", 1)
	require.NoError(t, err)
	assert.Len(t, panel.Items, 3, "an empty term matches every project")

	panel, err = ac.Update(ctx, "hello #nomatch", 14)
	require.NoError(t, err)
	assert.Equal(t, PanelEmpty, panel.State)
	assert.Equal(t, EmptyText, panel.Message())
	assert.True(t, panel.Visible())

	panel, err = ac.Update(ctx, "hello #pro done", 15)
	require.NoError(t, err)
	assert.False(t, panel.Visible())
	assert.Equal(t, PanelHidden, ac.Panel().State)
}

func TestAutocomplete_EscapeAndClickOutside(t *testing.T) {
	t.Parallel()

	ac := NewAutocomplete(catalog("project-x"), "u1")
	ctx := context.Background()

	assert.False(t, ac.KeyDown("Escape"), "nothing to dismiss")

	_, err := ac.Update(ctx, "#p", 2)
	require.NoError(t, err)
	assert.False(t, ac.KeyDown("ArrowDown"))
	assert.True(t, ac.Panel().Visible())
	assert.True(t, ac.KeyDown("Escape"))
	assert.False(t, ac.Panel().Visible())

	_, err = ac.Update(ctx, "#pr", 3)
	require.NoError(t, err)
	ac.ClickOutside()
	assert.False(t, ac.Panel().Visible())
}

func TestAutocomplete_SelectRewritesAndHides(t *testing.T) {
	t.Parallel()

	ac := NewAutocomplete(catalog("project-x"), "u1")
	panel, err := ac.Update(context.Background(), "hello #pro", 10)
	require.NoError(t, err)
	require.Len(t, panel.Items, 1)

	sel, err := ac.Select("hello #pro", 10, panel.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "hello #project-x ", sel.Text)
	assert.Equal(t, "id-project-x", sel.ProjectID)
	assert.False(t, ac.Panel().Visible())

	_, err = ac.Select("no tag", 6, panel.Items[0])
	assert.ErrorIs(t, err, ErrNoActiveToken)
}

func TestAutocomplete_SourceErrorHidesPanel(t *testing.T) {
	t.Parallel()

	boom := errors.New("unavailable")
	ac := NewAutocomplete(funcSource(func(context.Context, Query) ([]Candidate, error) {
		return nil, boom
	}), "u1")

	panel, err := ac.Update(context.Background(), "#x", 2)
	assert.ErrorIs(t, err, boom)
	assert.False(t, panel.Visible())
}

func TestAutocomplete_DiscardsStaleResults(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	ac := NewAutocomplete(funcSource(func(_ context.Context, q Query) ([]Candidate, error) {
		if q.Term == "slow" {
			close(started)
			<-release
			return []Candidate{{Name: "slow-project"}}, nil
		}
		return []Candidate{{Name: "fast-project"}}, nil
	}), "u1")
	ctx := context.Background()

	var wg sync.WaitGroup
	var stale Panel
	wg.Add(1)
	go func() {
		defer wg.Done()
		stale, _ = ac.Update(ctx, "#slow", 5)
	}()

	<-started
	fresh, err := ac.Update(ctx, "#fast", 5)
	require.NoError(t, err)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"fast-project"}, names(fresh.Items))
	assert.Equal(t, []string{"fast-project"}, names(stale.Items))
	assert.Equal(t, []string{"fast-project"}, names(ac.Panel().Items))
}

func TestAutocomplete_SetViewerChangesQuery(t *testing.T) {
	t.Parallel()

	var seen []string
	ac := NewAutocomplete(funcSource(func(_ context.Context, q Query) ([]Candidate, error) {
		seen = append(seen, q.ViewerID)
		return nil, nil
	}), "u1")

	_, _ = ac.Update(context.Background(), "#a", 2)
	ac.SetViewer("u2")
	_, _ = ac.Update(context.Background(), "#a", 2)
	assert.Equal(t, []string{"u1", "u2"}, seen)
}

func TestAutocomplete_SetLimit(t *testing.T) {
	t.Parallel()

	var limits []int
	ac := NewAutocomplete(funcSource(func(_ context.Context, q Query) ([]Candidate, error) {
		limits = append(limits, q.Limit)
		return nil, nil
	}), "u1")

	ctx := context.Background()
	_, _ = ac.Update(ctx, "#a", 2)
	ac.SetLimit(3)
	_, _ = ac.Update(ctx, "#a", 2)
	ac.SetLimit(0)
	_, _ = ac.Update(ctx, "#a", 2)
	assert.Equal(t, []int{DefaultLimit, 3, DefaultLimit}, limits)
}

func TestPanelFor(t *testing.T) {
	t.Parallel()

	empty := PanelFor("zz", nil)
	assert.Equal(t, PanelEmpty, empty.State)
	assert.Equal(t, "zz", empty.Term)
	assert.Nil(t, empty.Items)

	list := PanelFor("a", []Candidate{{ID: "1", Name: "app"}})
	assert.Equal(t, PanelList, list.State)
	assert.Empty(t, list.Message())
	assert.Empty(t, Panel{}.Message())
	assert.False(t, Panel{}.Visible())
}

func TestPanelState_JSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(PanelFor("ap", []Candidate{{ID: "1", Name: "app"}}))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"list"`)

	var decoded Panel
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, PanelList, decoded.State)

	var s PanelState
	require.NoError(t, s.UnmarshalText([]byte("empty")))
	assert.Equal(t, PanelEmpty, s)
	require.NoError(t, s.UnmarshalText([]byte("bogus")))
	assert.Equal(t, PanelHidden, s)
	assert.Equal(t, "hidden", s.String())
}
