package imageload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, G: 120, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/photo.webp", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write([]byte("RIFF....WEBP"))
	})
	mux.HandleFunc("/broken.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("not a png"))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/down.png", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := newImageServer(t)
	fetcher := NewHTTPFetcher(srv.Client(), nil)

	tests := []struct {
		path    string
		wantErr string
	}{
		{"/ok.png", ""},
		{"/ok.png?retry=2", ""},
		{"/photo.webp", ""},
		{"/broken.png", "decode image header"},
		{"/page", "not an image"},
		{"/down.png", "unexpected status 502"},
		{"/missing.png", "unexpected status 404"},
	}
	for _, tc := range tests {
		err := fetcher.Fetch(context.Background(), srv.URL+tc.path)
		if tc.wantErr == "" {
			if err != nil {
				t.Errorf("Fetch(%s) = %v, want nil", tc.path, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("Fetch(%s) = %v, want error containing %q", tc.path, err, tc.wantErr)
		}
	}
}

func TestHTTPFetcherResolvesRelativeLocators(t *testing.T) {
	srv := newImageServer(t)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	if err := NewHTTPFetcher(srv.Client(), base).Fetch(context.Background(), "/ok.png"); err != nil {
		t.Fatalf("fetch relative: %v", err)
	}
	if err := NewHTTPFetcher(srv.Client(), nil).Fetch(context.Background(), "/ok.png"); err == nil {
		t.Fatal("expected relative locator without base to fail")
	}
}

func TestHTTPFetcherHonoursCancellation(t *testing.T) {
	srv := newImageServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewHTTPFetcher(srv.Client(), nil).Fetch(ctx, srv.URL+"/ok.png")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch with cancelled ctx = %v, want context canceled", err)
	}
}

func TestLoaderWithHTTPFetcher(t *testing.T) {
	srv := newImageServer(t)
	l, err := New(Request{Locator: srv.URL + "/ok.png", AltText: "Rice", Priority: PriorityEager}, Options{
		Fetcher: NewHTTPFetcher(srv.Client(), nil),
	})
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	if err := l.Mount(context.Background()); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer l.Unmount()
	if got := waitDone(t, l); got.Phase != PhaseLoaded || got.Attempt != 1 {
		t.Fatalf("state = %+v, want loaded on first attempt", got)
	}
}
