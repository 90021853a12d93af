package upload

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/ounjeeh/staples/internal/platform/errors"
	"github.com/ounjeeh/staples/internal/platform/objectstore"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

var webpBytes = []byte("RIFF\x1a\x00\x00\x00WEBPVP8 \x0e\x00\x00\x00padding-bytes")

func TestRead(t *testing.T) {
	pngData := pngBytes(t)
	jpegData := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 16)...)

	tests := []struct {
		name     string
		data     []byte
		declared string
		wantType string
		wantExt  string
		wantErr  string
	}{
		{name: "png", data: pngData, declared: "image/png", wantType: "image/png", wantExt: "png"},
		{name: "jpeg declared as jpg", data: jpegData, declared: "image/jpg", wantType: "image/jpeg", wantExt: "jpg"},
		{name: "webp", data: webpBytes, declared: "image/webp", wantType: "image/webp", wantExt: "webp"},
		{name: "octet stream is sniffed", data: pngData, declared: "application/octet-stream", wantType: "image/png", wantExt: "png"},
		{name: "no declared type is sniffed", data: jpegData, wantType: "image/jpeg", wantExt: "jpg"},
		{name: "gif is rejected", data: []byte("GIF89a......"), declared: "image/gif", wantErr: "valid image"},
		{name: "text posing as png", data: []byte("hello world"), declared: "image/png", wantErr: "valid image"},
		{name: "declared type disagrees", data: pngData, declared: "image/jpeg", wantErr: "not image/jpeg"},
		{name: "empty", data: nil, declared: "image/png", wantErr: "empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := Read(bytes.NewReader(tc.data), tc.declared)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
				}
				if apperrors.KindOf(err) != apperrors.KindInvalidInput {
					t.Fatalf("kind = %q, want invalid input", apperrors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if img.ContentType != tc.wantType || img.Ext != tc.wantExt {
				t.Fatalf("got %q/%q, want %q/%q", img.ContentType, img.Ext, tc.wantType, tc.wantExt)
			}
			if !bytes.Equal(img.Data, tc.data) {
				t.Fatal("data was altered")
			}
		})
	}
}

func TestReadRejectsOversize(t *testing.T) {
	data := append(pngBytes(t), make([]byte, MaxBytes)...)
	_, err := Read(bytes.NewReader(data), "image/png")
	if apperrors.KindOf(err) != apperrors.KindTooLarge {
		t.Fatalf("kind = %q, want too large (err %v)", apperrors.KindOf(err), err)
	}
}

func TestNamer(t *testing.T) {
	namer := Namer{
		Now:    func() time.Time { return time.UnixMilli(1700000000123) },
		Random: func() string { return "abc123" },
	}
	if got, want := namer.Name("products", "png"), "products/1700000000123-abc123.png"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
	if got, want := namer.Name("", "webp"), "1700000000123-abc123.webp"; got != want {
		t.Fatalf("Name = %q, want %q", got, want)
	}
}

func TestDefaultNamerIsUnique(t *testing.T) {
	var n Namer
	a, b := n.Name("products", "jpg"), n.Name("products", "jpg")
	if a == b {
		t.Fatalf("names collide: %q", a)
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	bucket, err := objectstore.NewFSBucket(dir, "product-images", "http://localhost:8080/media")
	if err != nil {
		t.Fatalf("NewFSBucket: %v", err)
	}
	img, err := Read(bytes.NewReader(pngBytes(t)), "image/png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	namer := Namer{
		Now:    func() time.Time { return time.UnixMilli(42) },
		Random: func() string { return "r" },
	}
	stored, err := Store(context.Background(), bucket, namer, "products", img)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if stored.Path != "products/42-r.png" {
		t.Fatalf("path = %q", stored.Path)
	}
	if stored.URL != "http://localhost:8080/media/product-images/products/42-r.png" {
		t.Fatalf("url = %q", stored.URL)
	}
	if _, err := os.Stat(filepath.Join(dir, "product-images", "products", "42-r.png")); err != nil {
		t.Fatalf("stat stored file: %v", err)
	}
}

func TestStoreWithoutBucket(t *testing.T) {
	_, err := Store(context.Background(), nil, Namer{}, "", Image{Ext: "png"})
	if apperrors.KindOf(err) != apperrors.KindUnavailable {
		t.Fatalf("kind = %q, want unavailable", apperrors.KindOf(err))
	}
}
