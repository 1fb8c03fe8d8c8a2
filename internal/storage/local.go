package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads under a directory that the server exposes at publicBase.
type LocalStore struct {
	dir        string
	publicBase string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", abs, err)
	}
	return &LocalStore{dir: abs, publicBase: publicBase}, nil
}

// Dir is the root directory uploads are written to.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Upload(ctx context.Context, path string, body io.Reader, opts UploadOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY
	if opts.Upsert {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(full, flags, 0o644)
	if errors.Is(err, os.ErrExist) {
		return ErrObjectExists
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return f.Close()
}

func (s *LocalStore) PublicURL(path string) string {
	return joinURL(s.publicBase, path)
}

func (s *LocalStore) PathOf(publicURL string) (string, bool) {
	return pathFromURL(s.publicBase, publicURL)
}

func (s *LocalStore) resolve(path string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.dir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: invalid object path %q", path)
	}
	return full, nil
}
