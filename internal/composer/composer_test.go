package composer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shiplog/internal/feed"
	"shiplog/internal/hashtag"
	"shiplog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitterStub struct {
	calls    []Submission
	createFn func(context.Context, Submission) (*models.Post, error)
}

func (s *submitterStub) CreatePost(ctx context.Context, sub Submission) (*models.Post, error) {
	s.calls = append(s.calls, sub)
	return s.createFn(ctx, sub)
}

func okSubmitter() *submitterStub {
	return &submitterStub{createFn: func(_ context.Context, sub Submission) (*models.Post, error) {
		return &models.Post{
			ID:        "new",
			UserID:    sub.UserID,
			Content:   models.ShipMarker + sub.Content,
			ProjectID: sub.ProjectID,
			ImageURL:  sub.ImageURL,
			User:      &models.PostAuthor{ID: sub.UserID, FullName: "Ada"},
		}, nil
	}}
}

type uploaderFunc func(ctx context.Context, filename string, content []byte) (string, error)

func (f uploaderFunc) UploadImage(ctx context.Context, filename string, content []byte) (string, error) {
	return f(ctx, filename, content)
}

type staticSource []hashtag.Candidate

func (s staticSource) Suggest(_ context.Context, q hashtag.Query) ([]hashtag.Candidate, error) {
	var out []hashtag.Candidate
	for _, c := range s {
		if strings.HasPrefix(c.Name, q.Term) {
			out = append(out, c)
		}
	}
	return out, nil
}

func loadedFeed(t *testing.T, fetches *int, existing ...models.Post) *feed.Loader[models.Post] {
	t.Helper()
	l := feed.NewLoader[models.Post](func(context.Context) ([]models.Post, error) {
		*fetches++
		return existing, nil
	})
	require.Equal(t, feed.StatusLoaded, l.Load(context.Background()).Status)
	return l
}

func TestComposer_HashtagSelectionLinksProject(t *testing.T) {
	t.Parallel()

	fetches := 0
	sub := okSubmitter()
	c := New(Config{
		Source:    staticSource{{ID: "p1", Name: "project-x"}},
		Submitter: sub,
		Feed:      loadedFeed(t, &fetches, models.Post{ID: "old"}),
	})
	c.SetUser("u1")
	ctx := context.Background()

	panel, err := c.Type(ctx, "hello #pro", 10)
	require.NoError(t, err)
	require.Equal(t, hashtag.PanelList, panel.State)

	d, err := c.SelectProject(panel.Items[0])
	require.NoError(t, err)
	assert.Equal(t, "hello #project-x ", d.Text)
	assert.Equal(t, 17, d.Caret)
	require.NotNil(t, d.ProjectID)
	assert.Equal(t, "p1", *d.ProjectID)
	assert.False(t, c.Panel().Visible())

	_, err = c.Type(ctx, "hello #project-x shipped v2", 27)
	require.NoError(t, err)

	post, err := c.Submit(ctx)
	require.NoError(t, err)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, Submission{UserID: "u1", Content: "hello #project-x shipped v2", ProjectID: strPtr("p1")}, sub.calls[0])

	view := c.feed.View()
	require.Len(t, view.Items, 2)
	assert.Equal(t, post.ID, view.Items[0].ID)
	assert.Equal(t, "old", view.Items[1].ID)
	assert.Equal(t, 1, fetches, "prepending must not refetch")

	assert.Equal(t, Draft{}, c.Draft())
}

func TestComposer_WithoutSelectionProjectStaysNil(t *testing.T) {
	t.Parallel()

	sub := okSubmitter()
	c := New(Config{Source: staticSource{{ID: "p1", Name: "project-x"}}, Submitter: sub})
	c.SetUser("u1")

	_, err := c.Type(context.Background(), "typed #project-x by hand", 24)
	require.NoError(t, err)
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sub.calls[0].ProjectID)
}

func TestComposer_PreSubmitValidation(t *testing.T) {
	t.Parallel()

	sub := okSubmitter()
	var observed []error
	c := New(Config{Source: staticSource{}, Submitter: sub, OnError: func(err error) { observed = append(observed, err) }})
	ctx := context.Background()

	_, err := c.Type(ctx, "shipped", 7)
	require.NoError(t, err)
	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	c.SetUser("u1")
	_, err = c.Type(ctx, "   ", 3)
	require.NoError(t, err)
	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrEmptyPost)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	assert.Empty(t, sub.calls, "validation failures never reach the network")
	assert.Empty(t, observed)
}

func TestComposer_FailureKeepsDraft(t *testing.T) {
	t.Parallel()

	fetches := 0
	boom := models.NewIdentityMismatchError()
	sub := &submitterStub{createFn: func(context.Context, Submission) (*models.Post, error) { return nil, boom }}
	var observed []error
	c := New(Config{
		Source:    staticSource{},
		Submitter: sub,
		Feed:      loadedFeed(t, &fetches),
		OnError:   func(err error) { observed = append(observed, err) },
	})
	c.SetUser("u1")

	_, err := c.Type(context.Background(), "will fail", 9)
	require.NoError(t, err)
	_, err = c.Submit(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, observed)
	assert.Equal(t, "will fail", c.Draft().Text)
	assert.Empty(t, c.feed.View().Items)
}

func TestComposer_ImageAttachment(t *testing.T) {
	t.Parallel()

	sub := okSubmitter()
	c := New(Config{
		Source:    staticSource{},
		Submitter: sub,
		Uploader: uploaderFunc(func(_ context.Context, filename string, _ []byte) (string, error) {
			return "https://cdn.example.com/u1/" + filename, nil
		}),
	})
	c.SetUser("u1")
	ctx := context.Background()

	url, err := c.AttachImage(ctx, "shot.png", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/u1/shot.png", url)

	_, err = c.Type(ctx, "with picture", 12)
	require.NoError(t, err)
	_, err = c.Submit(ctx)
	require.NoError(t, err)
	require.NotNil(t, sub.calls[0].ImageURL)
	assert.Equal(t, url, *sub.calls[0].ImageURL)
	assert.Nil(t, c.Draft().ImageURL)

	_, err = c.AttachImage(ctx, "again.png", []byte("img"))
	require.NoError(t, err)
	c.RemoveImage()
	assert.Nil(t, c.Draft().ImageURL)
}

func TestComposer_RefusesSubmitDuringUpload(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	sub := okSubmitter()
	c := New(Config{
		Source:    staticSource{},
		Submitter: sub,
		Uploader: uploaderFunc(func(context.Context, string, []byte) (string, error) {
			close(started)
			<-release
			return "https://cdn.example.com/x.png", nil
		}),
	})
	c.SetUser("u1")
	ctx := context.Background()
	_, err := c.Type(ctx, "uploading", 9)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.AttachImage(ctx, "x.png", []byte("img"))
		done <- err
	}()
	<-started

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrUploadInProgress)
	_, err = c.AttachImage(ctx, "y.png", []byte("img"))
	assert.ErrorIs(t, err, ErrUploadInProgress)

	close(release)
	require.NoError(t, <-done)

	_, err = c.Submit(ctx)
	require.NoError(t, err)
	assert.Len(t, sub.calls, 1)
}

func TestComposer_EditsDuringSubmitSurvive(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	sub := okSubmitter()
	create := sub.createFn
	sub.createFn = func(ctx context.Context, s Submission) (*models.Post, error) {
		close(started)
		<-release
		return create(ctx, s)
	}
	fetches := 0
	f := loadedFeed(t, &fetches)
	c := New(Config{Source: staticSource{}, Submitter: sub, Feed: f})
	c.SetUser("u1")
	ctx := context.Background()
	_, err := c.Type(ctx, "first ship", 10)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx)
		done <- err
	}()
	<-started

	_, err = c.Type(ctx, "second ship", 11)
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "second ship", c.Draft().Text)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "first ship", sub.calls[0].Content)
	require.Len(t, f.View().Items, 1)
}

func TestComposer_UploadFailureIsReported(t *testing.T) {
	t.Parallel()

	boom := errors.New("storage unavailable")
	var observed []error
	c := New(Config{
		Source: staticSource{},
		Uploader: uploaderFunc(func(context.Context, string, []byte) (string, error) {
			return "", boom
		}),
		OnError: func(err error) { observed = append(observed, err) },
	})

	_, err := c.AttachImage(context.Background(), "x.png", []byte("img"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []error{boom}, observed)
	assert.Nil(t, c.Draft().ImageURL)
}

func TestComposer_EscapeHidesSuggestions(t *testing.T) {
	t.Parallel()

	c := New(Config{Source: staticSource{{ID: "p1", Name: "project-x"}}})
	_, err := c.Type(context.Background(), "#p", 2)
	require.NoError(t, err)
	require.True(t, c.Panel().Visible())

	assert.True(t, c.KeyDown("Escape"))
	assert.False(t, c.Panel().Visible())

	_, err = c.Type(context.Background(), "#p", 2)
	require.NoError(t, err)
	c.ClickOutside()
	assert.False(t, c.Panel().Visible())
}

func strPtr(s string) *string { return &s }
