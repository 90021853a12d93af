// Package upload validates admin image uploads and stores them in a bucket.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ounjeeh/staples/internal/platform/errors"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
)

// MaxBytes is the largest accepted image.
const MaxBytes = 5 << 20

// Field is the multipart field carrying the image.
const Field = "image"

// extensions maps accepted content types to stored file extensions.
var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Image is a validated upload held in memory.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Stored locates an image after Put.
type Stored struct {
	Path string
	URL  string
}

// Allowed reports whether contentType is accepted.
func Allowed(contentType string) bool {
	_, ok := extensions[normalizeType(contentType)]
	return ok
}

// ReadFile validates a multipart file header and reads its body.
func ReadFile(fh *multipart.FileHeader) (Image, error) {
	if fh == nil {
		return Image{}, apperrors.Field(Field, "Please select an image")
	}
	if fh.Size > MaxBytes {
		return Image{}, tooLarge()
	}
	f, err := fh.Open()
	if err != nil {
		return Image{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return Read(f, fh.Header.Get("Content-Type"))
}

// Read validates an image body of at most MaxBytes. The sniffed content type
// must be accepted and agree with declared when declared is specific.
func Read(r io.Reader, declared string) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxBytes {
		return Image{}, tooLarge()
	}
	if len(data) == 0 {
		return Image{}, apperrors.Field(Field, "Image file is empty")
	}

	declared = normalizeType(declared)
	if declared != "" && declared != "application/octet-stream" && !Allowed(declared) {
		return Image{}, invalidType()
	}
	sniffed := normalizeType(http.DetectContentType(data))
	if !Allowed(sniffed) {
		return Image{}, invalidType()
	}
	if declared != "" && declared != "application/octet-stream" && declared != sniffed {
		return Image{}, apperrors.Field(Field, fmt.Sprintf("File content is %s, not %s", sniffed, declared))
	}
	return Image{Data: data, ContentType: sniffed, Ext: extensions[sniffed]}, nil
}

// Namer builds unique object names of the form <unix-millis>-<random>.<ext>.
type Namer struct {
	Now    func() time.Time
	Random func() string
}

// Name returns a new object name for ext under folder.
func (n Namer) Name(folder, ext string) string {
	now := n.Now
	if now == nil {
		now = time.Now
	}
	random := n.Random
	if random == nil {
		random = randomToken
	}
	name := fmt.Sprintf("%d-%s.%s", now().UnixMilli(), random(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// Store puts img into bucket under folder and returns its path and public URL.
func Store(ctx context.Context, bucket objectstore.Bucket, namer Namer, folder string, img Image) (Stored, error) {
	if bucket == nil {
		return Stored{}, apperrors.E(apperrors.KindUnavailable, "Image storage is not configured")
	}
	obj, err := bucket.Put(ctx, namer.Name(folder, img.Ext), bytes.NewReader(img.Data), img.ContentType)
	if err != nil {
		return Stored{}, fmt.Errorf("store image: %w", err)
	}
	return Stored{Path: obj.Path, URL: bucket.PublicURL(obj.Path)}, nil
}

func normalizeType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return "image/jpeg"
	}
	return mediaType
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func tooLarge() error {
	return apperrors.Error{Kind: apperrors.KindTooLarge, Field: Field, Message: "Image must be less than 5MB"}
}

func invalidType() error {
	return apperrors.Field(Field, "Please upload a valid image (JPEG, PNG, or WebP)")
}
