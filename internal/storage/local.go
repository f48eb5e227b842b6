package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes files beneath a directory and serves them itself.
type LocalStore struct {
	dir       string
	urlPrefix string
}

// NewLocalStore stores files in dir; Put returns urlPrefix + name.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/") + "/"}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	name, ok := cleanName(name)
	if !ok {
		return "", fmt.Errorf("invalid object name")
	}

	path := filepath.Join(s.dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return s.urlPrefix + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	name, ok := cleanName(name)
	if !ok {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *LocalStore) NameFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, s.urlPrefix) {
		return "", false
	}
	return cleanName(strings.TrimPrefix(url, s.urlPrefix))
}

// Serve writes the named file to w, or 404s.
func (s *LocalStore) Serve(w http.ResponseWriter, r *http.Request, name string) {
	name, ok := cleanName(filepath.Base(name))
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
