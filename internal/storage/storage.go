// Package storage keeps uploaded avatar images on local disk or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store saves objects under flat names and hands out the URL clients use to
// fetch them.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	// NameFromURL reverses the URL returned by Put. ok is false for URLs
	// this store did not produce, e.g. Gravatar or Google profile pictures.
	NameFromURL(url string) (name string, ok bool)
}

// cleanName rejects names that could escape the store's namespace.
func cleanName(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}
