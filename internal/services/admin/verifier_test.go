package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ounjeeh/staples/internal/platform/imageload"
)

type recordingMarker struct {
	mu     sync.Mutex
	marked map[string]time.Time
	ch     chan string
}

func newRecordingMarker() *recordingMarker {
	return &recordingMarker{marked: make(map[string]time.Time), ch: make(chan string, 8)}
}

func (m *recordingMarker) MarkProductImageVerified(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	m.marked[id] = at
	m.mu.Unlock()
	m.ch <- id
	return nil
}

func (m *recordingMarker) wait(t *testing.T) string {
	t.Helper()
	select {
	case id := <-m.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a record to be marked")
		return ""
	}
}

func TestVerifierMarksLoadedImage(t *testing.T) {
	marker := newRecordingMarker()
	var mu sync.Mutex
	var fetched []string
	verifier, err := NewVerifier(VerifierConfig{
		Marker: marker,
		Fetcher: imageload.FetcherFunc(func(_ context.Context, locator string) error {
			mu.Lock()
			fetched = append(fetched, locator)
			mu.Unlock()
			return nil
		}),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	t.Cleanup(verifier.Close)

	if err := verifier.Track("rec-1", "http://localhost/media/product-images/products/1-a.png"); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got := marker.wait(t); got != "rec-1" {
		t.Fatalf("marked %q, want rec-1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(fetched) != 1 || fetched[0] != "http://localhost/media/product-images/products/1-a.png" {
		t.Fatalf("fetched = %v", fetched)
	}
}

func TestVerifierDoesNotMarkFailingImage(t *testing.T) {
	marker := newRecordingMarker()
	attempts := make(chan struct{}, 8)
	verifier, err := NewVerifier(VerifierConfig{
		Marker: marker,
		Fetcher: imageload.FetcherFunc(func(context.Context, string) error {
			attempts <- struct{}{}
			return errors.New("404")
		}),
		Policy: imageload.Policy{MaxRetries: imageload.NoRetries, BaseDelay: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	t.Cleanup(verifier.Close)

	if err := verifier.Track("rec-2", "http://localhost/missing.png"); err != nil {
		t.Fatalf("Track: %v", err)
	}
	select {
	case <-attempts:
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch attempt")
	}
	deadline := time.Now().Add(2 * time.Second)
	for verifier.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("verification never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case id := <-marker.ch:
		t.Fatalf("failing image marked %q", id)
	default:
	}
}

func TestVerifierCloseAbandonsPending(t *testing.T) {
	marker := newRecordingMarker()
	started := make(chan struct{})
	verifier, err := NewVerifier(VerifierConfig{
		Marker: marker,
		Fetcher: imageload.FetcherFunc(func(ctx context.Context, _ string) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if err := verifier.Track("rec-3", "http://localhost/slow.png"); err != nil {
		t.Fatalf("Track: %v", err)
	}
	<-started
	if got := verifier.Pending(); got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}
	verifier.Close()
	if got := verifier.Pending(); got != 0 {
		t.Fatalf("Pending after Close = %d, want 0", got)
	}
	if err := verifier.Track("rec-4", "http://localhost/late.png"); err == nil {
		t.Fatal("expected Track after Close to fail")
	}
	select {
	case id := <-marker.ch:
		t.Fatalf("abandoned image marked %q", id)
	default:
	}
}
