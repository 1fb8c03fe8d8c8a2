// Package storage puts uploaded blobs somewhere they can be served from.
package storage

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/rs/xid"
)

// ErrObjectExists is returned when an upload without Upsert hits an existing path.
var ErrObjectExists = errors.New("storage: object already exists")

// UploadOptions mirror the blob-store knobs the app sets per upload.
type UploadOptions struct {
	// CacheControl is a max-age in seconds, e.g. "3600".
	CacheControl string
	Upsert       bool
	ContentType  string
}

// Store uploads blobs and resolves their public URL.
type Store interface {
	Upload(ctx context.Context, path string, body io.Reader, opts UploadOptions) error
	PublicURL(path string) string
	// PathOf maps a URL returned by PublicURL back to its object path.
	PathOf(publicURL string) (string, bool)
}

// ObjectPath returns a fresh "<userID>/<random><ext>" path. ext includes the dot.
func ObjectPath(userID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return userID + "/" + xid.New().String() + strings.ToLower(ext)
}

func cacheControlHeader(v string) string {
	if v == "" {
		return ""
	}
	if _, err := strconv.Atoi(v); err == nil {
		return "max-age=" + v
	}
	return v
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// pathFromURL strips base from u and checks the rest is a plain object path.
func pathFromURL(base, u string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	path := strings.TrimPrefix(u, prefix)
	if path == "" || strings.ContainsAny(path, "?#\\%") {
		return "", false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", false
		}
	}
	return path, true
}
