// Package objectstore stores uploaded media in named buckets and exposes them
// at public URLs.
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrExists is returned by Put when the object already exists.
	ErrExists = errors.New("object already exists")
	// ErrInvalidPath is returned for empty, absolute or escaping object paths.
	ErrInvalidPath = errors.New("invalid object path")
)

// Object describes one stored file.
type Object struct {
	Path        string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Bucket is the storage contract used by the admin panel.
type Bucket interface {
	// Put stores r at path. It never overwrites.
	Put(ctx context.Context, path string, r io.Reader, contentType string) (Object, error)
	// Delete removes paths. Missing objects are ignored.
	Delete(ctx context.Context, paths ...string) error
	// List returns the objects directly under folder.
	List(ctx context.Context, folder string) ([]Object, error)
	// PublicURL returns the URL visitors use to load path.
	PublicURL(path string) string
}
