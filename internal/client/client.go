// Package client talks to the shiplog API over HTTP. It backs the composer
// and feed of command-line tools.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"shiplog/internal/auth"
	"shiplog/internal/composer"
	"shiplog/internal/hashtag"
	"shiplog/internal/models"
)

const defaultTimeout = 15 * time.Second

var (
	_ composer.Submitter     = (*Client)(nil)
	_ composer.ImageUploader = (*Client)(nil)
	_ hashtag.Source         = (*Client)(nil)
)

// SessionInfo is returned by sign-in and session lookups.
type SessionInfo struct {
	Token   string       `json:"token,omitempty"`
	Session auth.Session `json:"session"`
	User    *models.User `json:"user,omitempty"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API served at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", u.Scheme)
	}
	c := &Client{baseURL: u, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// DevLogin signs in by email against a non-production server and keeps the token.
func (c *Client) DevLogin(ctx context.Context, email string) (*SessionInfo, error) {
	var out SessionInfo
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/dev-login", map[string]string{"email": email}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/session", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Feed returns every post newest first. Its signature matches feed.FetchFunc.
func (c *Client) Feed(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, s composer.Submission) (*models.Post, error) {
	var post models.Post
	if err := c.doJSON(ctx, http.MethodPost, "/api/posts", s, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) UploadImage(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/uploads", w.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Suggest asks the server for projects matching q.Term. The server scopes
// results to the signed-in user, so q.ViewerID is not sent.
func (c *Client) Suggest(ctx context.Context, q hashtag.Query) ([]hashtag.Candidate, error) {
	text := "#" + q.Term
	req := map[string]any{"text": text, "caret": utf8.RuneCountInString(text)}

	var out struct {
		Panel hashtag.Panel `json:"panel"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/hashtags/suggest", req, &out); err != nil {
		return nil, err
	}
	items := out.Panel.Items
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	if err := c.doJSON(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewProject is the payload for CreateProject.
type NewProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Pitch       string   `json:"pitch,omitempty"`
	Website     string   `json:"website,omitempty"`
	Emoji       string   `json:"emoji,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	IsPrivate   bool     `json:"is_private"`
}

func (c *Client) CreateProject(ctx context.Context, p NewProject) (*models.Project, error) {
	var out models.Project
	if err := c.doJSON(ctx, http.MethodPost, "/api/projects", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FeedSocketURL issues a one-shot ticket and returns the live-feed WebSocket URL.
func (c *Client) FeedSocketURL(ctx context.Context) (string, error) {
	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/ws/ticket", nil, &out); err != nil {
		return "", err
	}

	u := c.endpoint("/api/ws/feed")
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"ticket": {out.Ticket}}.Encode()
	return u.String(), nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path).String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// decodeError rebuilds the server's AppError so callers can match on its code.
func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &models.AppError{
			Code:    codeForStatus(resp.StatusCode),
			Message: http.StatusText(resp.StatusCode),
			Err:     fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	appErr := &models.AppError{Code: body.Code, Message: body.Error}
	if appErr.Code == "" {
		appErr.Code = codeForStatus(resp.StatusCode)
	}
	if body.Details != "" {
		appErr.Err = errors.New(body.Details)
	}
	return appErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthorized
	case http.StatusForbidden:
		return models.CodeForbidden
	case http.StatusNotFound:
		return models.CodeNotFound
	default:
		return models.CodeInternal
	}
}
