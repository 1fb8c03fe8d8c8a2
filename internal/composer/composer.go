// Package composer holds the state of the post input: the draft text, the
// project linked through a #hashtag and an attached image.
package composer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"shiplog/internal/feed"
	"shiplog/internal/hashtag"
	"shiplog/internal/models"
)

var (
	ErrEmptyPost        = models.NewValidationError("Write something before shipping")
	ErrNotSignedIn      = models.NewValidationError("Sign in to ship")
	ErrUploadInProgress = models.NewValidationError("Wait for the image upload to finish")
	ErrSubmitInProgress = models.NewValidationError("A post is already being submitted")
)

// Submission is what the composer sends to be stored.
type Submission struct {
	UserID    string  `json:"user_id"`
	Content   string  `json:"content"`
	ProjectID *string `json:"project_id,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
}

// Submitter stores a post and returns it joined with its author and project.
type Submitter interface {
	CreatePost(ctx context.Context, s Submission) (*models.Post, error)
}

// ImageUploader stores an image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, filename string, content []byte) (string, error)
}

// ErrorObserver is told about every failed upload or submission.
type ErrorObserver func(error)

// Draft is the unsent post.
type Draft struct {
	Text      string
	Caret     int
	ProjectID *string
	ImageURL  *string
}

type Config struct {
	Source    hashtag.Source
	Submitter Submitter
	Uploader  ImageUploader
	// Feed receives each created post at its head.
	Feed    *feed.Loader[models.Post]
	OnError ErrorObserver
}

type Composer struct {
	ac        *hashtag.Autocomplete
	submitter Submitter
	uploader  ImageUploader
	feed      *feed.Loader[models.Post]
	onError   ErrorObserver

	mu         sync.Mutex
	userID     string
	draft      Draft
	uploading  bool
	submitting bool
}

func New(cfg Config) *Composer {
	return &Composer{
		ac:        hashtag.NewAutocomplete(cfg.Source, ""),
		submitter: cfg.Submitter,
		uploader:  cfg.Uploader,
		feed:      cfg.Feed,
		onError:   cfg.OnError,
	}
}

// SetUser records the signed-in user the composer posts as. An empty id
// means signed out.
func (c *Composer) SetUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
	c.ac.SetViewer(userID)
}

// Type replaces the draft text and caret and refreshes suggestions.
func (c *Composer) Type(ctx context.Context, text string, caret int) (hashtag.Panel, error) {
	c.mu.Lock()
	c.draft.Text = text
	c.draft.Caret = caret
	c.mu.Unlock()
	return c.ac.Update(ctx, text, caret)
}

// KeyDown forwards a key to the suggestion panel and reports whether it was consumed.
func (c *Composer) KeyDown(key string) bool {
	return c.ac.KeyDown(key)
}

// ClickOutside hides suggestions.
func (c *Composer) ClickOutside() {
	c.ac.ClickOutside()
}

// Panel returns the current suggestion panel.
func (c *Composer) Panel() hashtag.Panel {
	return c.ac.Panel()
}

// SelectProject completes the hashtag under the caret and links the project.
func (c *Composer) SelectProject(cand hashtag.Candidate) (Draft, error) {
	c.mu.Lock()
	text, caret := c.draft.Text, c.draft.Caret
	c.mu.Unlock()

	sel, err := c.ac.Select(text, caret, cand)
	if err != nil {
		return c.Draft(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Text = sel.Text
	c.draft.Caret = sel.Caret
	id := sel.ProjectID
	c.draft.ProjectID = &id
	return c.snapshotLocked(), nil
}

// AttachImage uploads an image and attaches its URL to the draft. Submission
// is refused until it finishes.
func (c *Composer) AttachImage(ctx context.Context, filename string, content []byte) (string, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return "", ErrUploadInProgress
	}
	if c.uploader == nil {
		c.mu.Unlock()
		return "", errors.New("composer: no image uploader configured")
	}
	c.uploading = true
	c.mu.Unlock()

	url, err := c.uploader.UploadImage(ctx, filename, content)

	c.mu.Lock()
	c.uploading = false
	if err == nil {
		c.draft.ImageURL = &url
	}
	c.mu.Unlock()

	if err != nil {
		c.report(err)
		return "", err
	}
	return url, nil
}

// RemoveImage detaches the image from the draft.
func (c *Composer) RemoveImage() {
	c.mu.Lock()
	c.draft.ImageURL = nil
	c.mu.Unlock()
}

// Draft returns a copy of the current draft.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Submit sends the draft. On success the stored post is prepended to the feed
// and the draft is cleared unless it was edited while the request ran; on
// failure the draft is kept as typed.
func (c *Composer) Submit(ctx context.Context) (*models.Post, error) {
	c.mu.Lock()
	switch {
	case strings.TrimSpace(c.draft.Text) == "":
		c.mu.Unlock()
		return nil, ErrEmptyPost
	case c.userID == "":
		c.mu.Unlock()
		return nil, ErrNotSignedIn
	case c.uploading:
		c.mu.Unlock()
		return nil, ErrUploadInProgress
	case c.submitting:
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.submitting = true
	d := c.snapshotLocked()
	sub := Submission{
		UserID:    c.userID,
		Content:   strings.TrimSpace(d.Text),
		ProjectID: d.ProjectID,
		ImageURL:  d.ImageURL,
	}
	c.mu.Unlock()

	post, err := c.submitter.CreatePost(ctx, sub)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		c.report(err)
		return nil, err
	}
	cleared := sameDraft(c.draft, d)
	if cleared {
		c.draft = Draft{}
	}
	c.mu.Unlock()

	if cleared {
		c.ac.ClickOutside()
	}
	if c.feed != nil {
		c.feed.Prepend(*post)
	}
	return post, nil
}

func (c *Composer) snapshotLocked() Draft {
	d := c.draft
	if d.ProjectID != nil {
		id := *d.ProjectID
		d.ProjectID = &id
	}
	if d.ImageURL != nil {
		url := *d.ImageURL
		d.ImageURL = &url
	}
	return d
}

func (c *Composer) report(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

func sameDraft(a, b Draft) bool {
	return a.Text == b.Text && a.Caret == b.Caret &&
		equalPtr(a.ProjectID, b.ProjectID) && equalPtr(a.ImageURL, b.ImageURL)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
