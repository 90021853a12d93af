package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// FSBucket is a Bucket backed by a directory on disk.
type FSBucket struct {
	root       string
	name       string
	publicBase string
}

// NewFSBucket creates dir/name if needed. Public URLs are
// publicBase/name/path.
func NewFSBucket(dir, name, publicBase string) (*FSBucket, error) {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return nil, fmt.Errorf("bucket name %q: %w", name, ErrInvalidPath)
	}
	root := filepath.Join(dir, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	return &FSBucket{
		root:       root,
		name:       name,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
	}, nil
}

// Name returns the bucket name.
func (b *FSBucket) Name() string {
	return b.name
}

// Handler serves the bucket's files. Mount it under publicBase/name/.
func (b *FSBucket) Handler() http.Handler {
	return http.FileServerFS(noDirFS{os.DirFS(b.root)})
}

// Put implements Bucket.
func (b *FSBucket) Put(ctx context.Context, name string, r io.Reader, contentType string) (Object, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	full := filepath.Join(b.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return Object{}, fmt.Errorf("%s: %w", clean, ErrExists)
	}
	if err != nil {
		return Object{}, fmt.Errorf("create object: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	info, err := os.Stat(full)
	if err != nil {
		return Object{}, fmt.Errorf("stat object: %w", err)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(clean))
	}
	return Object{Path: clean, Size: size, ContentType: contentType, ModTime: info.ModTime()}, nil
}

// Delete implements Bucket.
func (b *FSBucket) Delete(ctx context.Context, names ...string) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		clean, err := cleanPath(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		err = os.Remove(filepath.Join(b.root, filepath.FromSlash(clean)))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", clean, err))
		}
	}
	return errors.Join(errs...)
}

// List implements Bucket.
func (b *FSBucket) List(ctx context.Context, folder string) ([]Object, error) {
	dir := b.root
	prefix := ""
	if strings.Trim(folder, "/") != "" {
		clean, err := cleanPath(folder)
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(b.root, filepath.FromSlash(clean))
		prefix = clean + "/"
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	var out []Object
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Object{
			Path:        prefix + entry.Name(),
			Size:        info.Size(),
			ContentType: mime.TypeByExtension(path.Ext(entry.Name())),
			ModTime:     info.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b Object) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

// PublicURL implements Bucket.
func (b *FSBucket) PublicURL(name string) string {
	clean, err := cleanPath(name)
	if err != nil {
		return ""
	}
	escaped := (&url.URL{Path: clean}).EscapedPath()
	return b.publicBase + "/" + b.name + "/" + escaped
}

func cleanPath(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") || strings.Contains(trimmed, `\`) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidPath)
	}
	clean := path.Clean(trimmed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || !fs.ValidPath(clean) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidPath)
	}
	return clean, nil
}

// noDirFS hides directory listings.
type noDirFS struct {
	fs.FS
}

func (n noDirFS) Open(name string) (fs.File, error) {
	f, err := n.FS.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
