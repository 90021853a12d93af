package imageload

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ounjeeh/staples/internal/platform/otel"
	"github.com/ounjeeh/staples/internal/platform/timeouts"
)

// Fetcher performs one image fetch attempt. A nil error means the image is
// displayable. Implementations should honour ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string) error

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, locator string) error {
	return f(ctx, locator)
}

// DefaultMaxImageBytes bounds how much of a response HTTPFetcher reads.
const DefaultMaxImageBytes = 10 << 20

var (
	errUnexpectedStatus = errors.New("unexpected status")
	errNotAnImage       = errors.New("response is not an image")
)

// HTTPFetcher fetches images over HTTP and checks that the body decodes.
// PNG, JPEG and GIF headers are decoded; other image types are accepted on
// their declared content type.
type HTTPFetcher struct {
	Client *http.Client
	// BaseURL resolves relative locators such as /media/products/a.png.
	BaseURL  *url.URL
	MaxBytes int64
	tracer   trace.Tracer
}

// NewHTTPFetcher builds a fetcher. A nil client gets a default client with the
// image fetch timeout.
func NewHTTPFetcher(client *http.Client, baseURL *url.URL) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeouts.ImageFetch}
	}
	return &HTTPFetcher{
		Client:   client,
		BaseURL:  baseURL,
		MaxBytes: DefaultMaxImageBytes,
		tracer:   otel.Tracer("imageload"),
	}
}

// Fetch issues one GET for locator.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (err error) {
	if f == nil {
		return errors.New("image fetcher is not configured")
	}
	tracer := f.tracer
	if tracer == nil {
		tracer = otel.Tracer("imageload")
	}
	ctx, span := tracer.Start(ctx, "imageload.fetch", trace.WithAttributes(attribute.String("image.locator", locator)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	target, err := f.resolve(locator)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get image: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w %d", errUnexpectedStatus, resp.StatusCode)
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	body := io.LimitReader(resp.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif":
		if _, _, err := image.DecodeConfig(body); err != nil {
			return fmt.Errorf("decode image header: %w", err)
		}
	default:
		if !strings.HasPrefix(mediaType, "image/") {
			return fmt.Errorf("%w: content type %q", errNotAnImage, mediaType)
		}
	}
	_, _ = io.Copy(io.Discard, body)
	return nil
}

func (f *HTTPFetcher) resolve(locator string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return "", fmt.Errorf("parse image locator: %w", err)
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	if f.BaseURL == nil {
		return "", fmt.Errorf("relative image locator %q needs a base url", locator)
	}
	return f.BaseURL.ResolveReference(parsed).String(), nil
}
