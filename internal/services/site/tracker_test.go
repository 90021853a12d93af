package site

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ounjeeh/staples/internal/platform/imageload"
)

// countingFetcher records fetched locators and fails those listed in broken.
type countingFetcher struct {
	mu      sync.Mutex
	fetched map[string]int
	broken  map[string]bool
}

func newCountingFetcher(broken ...string) *countingFetcher {
	f := &countingFetcher{
		fetched: make(map[string]int),
		broken:  make(map[string]bool),
	}
	for _, locator := range broken {
		f.broken[locator] = true
	}
	return f
}

func (f *countingFetcher) Fetch(_ context.Context, locator string) error {
	base, _, _ := strings.Cut(locator, "?retry=")
	f.mu.Lock()
	f.fetched[base]++
	broken := f.broken[base]
	f.mu.Unlock()
	if broken {
		return errImageMissing
	}
	return nil
}

func (f *countingFetcher) count(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[locator]
}

func (f *countingFetcher) repair(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.broken, locator)
}

var errImageMissing = errors.New("404 not found")

func newTestTracker(t *testing.T, fetcher imageload.Fetcher) *ImageTracker {
	t.Helper()
	return newTestTrackerWith(t, TrackerConfig{Fetcher: fetcher})
}

func newTestTrackerWith(t *testing.T, cfg TrackerConfig) *ImageTracker {
	t.Helper()
	cfg.Policy = imageload.Policy{MaxRetries: imageload.NoRetries, BaseDelay: time.Millisecond}
	if cfg.Settle == 0 {
		cfg.Settle = 2 * time.Second
	}
	tracker, err := NewImageTracker(cfg)
	if err != nil {
		t.Fatalf("NewImageTracker: %v", err)
	}
	t.Cleanup(tracker.Close)
	return tracker
}

func slotAt(index int, locator string) Slot {
	return Slot{Index: index, Request: imageload.Request{Locator: locator, AltText: "staple"}}
}

func waitFetched(t *testing.T, f *countingFetcher, locator string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.count(locator) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%s was never fetched", locator)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func pageLoader(t *testing.T, page *Page, slot Slot) *imageload.Loader {
	t.Helper()
	loader, err := page.Loader(slot)
	if err != nil {
		t.Fatalf("Loader: %v", err)
	}
	return loader
}

func TestTrackerFirstRowIsEager(t *testing.T) {
	fetcher := newCountingFetcher()
	tracker := newTestTracker(t, fetcher)

	loader := pageLoader(t, tracker.Page(1), slotAt(2, "https://cdn.example.com/rice.jpg"))
	if loader.Request().Priority != imageload.PriorityEager {
		t.Fatalf("priority = %v, want eager", loader.Request().Priority)
	}
	if got := loader.State().Attempt; got != 1 {
		t.Fatalf("attempt after mount = %d, want 1", got)
	}
	waitFetched(t, fetcher, "https://cdn.example.com/rice.jpg")
}

func TestTrackerLazySlotWaitsForPage(t *testing.T) {
	fetcher := newCountingFetcher()
	tracker := newTestTracker(t, fetcher)

	// Index 9 is row 3, below the first page.
	far := slotAt(9, "https://cdn.example.com/fish.jpg")
	first := tracker.Page(1)
	loader := pageLoader(t, first, far)
	if loader.Request().Priority != imageload.PriorityLazy {
		t.Fatalf("priority = %v, want lazy", loader.Request().Priority)
	}
	start := time.Now()
	first.Settle(context.Background(), []Slot{far})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("settle waited %v for an image outside the page", elapsed)
	}
	time.Sleep(20 * time.Millisecond)
	if got := fetcher.count("https://cdn.example.com/fish.jpg"); got != 0 {
		t.Fatalf("fetched %d times before its page was shown", got)
	}

	second := tracker.Page(2)
	second.Settle(context.Background(), []Slot{far})
	if got := pageLoader(t, second, far); got != loader {
		t.Fatal("second page mounted a new loader")
	}
	if got := loader.State().Phase; got != imageload.PhaseLoaded {
		t.Fatalf("phase = %v, want loaded", got)
	}
}

func TestTrackerNearSlotOnFirstPageLoads(t *testing.T) {
	fetcher := newCountingFetcher()
	tracker := newTestTracker(t, fetcher)

	// Index 4 is row 1, inside the first page.
	slot := slotAt(4, "https://cdn.example.com/garri.jpg")
	page := tracker.Page(1)
	page.Settle(context.Background(), []Slot{slot})
	loader := pageLoader(t, page, slot)
	if loader.Request().Priority != imageload.PriorityLazy {
		t.Fatalf("priority = %v, want lazy", loader.Request().Priority)
	}
	if got := loader.State().Phase; got != imageload.PhaseLoaded {
		t.Fatalf("phase = %v, want loaded", got)
	}
}

func TestTrackerPagesHaveIndependentViewports(t *testing.T) {
	fetcher := newCountingFetcher()
	tracker := newTestTracker(t, fetcher)

	// A visitor deep in the product listing.
	listing := tracker.Page(3)
	listing.Settle(context.Background(), []Slot{
		slotAt(12, "https://cdn.example.com/yam.jpg"),
		slotAt(13, "https://cdn.example.com/egusi.jpg"),
	})

	// Another visitor opens the team page; index 3 is on its first page.
	member := slotAt(3, "https://cdn.example.com/team/ada.jpg")
	team := tracker.Page(1)
	start := time.Now()
	team.Settle(context.Background(), []Slot{member})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("team page waited %v", elapsed)
	}
	if got := pageLoader(t, team, member).State().Phase; got != imageload.PhaseLoaded {
		t.Fatalf("team photo phase = %v, want loaded", got)
	}
}

func TestTrackerReusesLoaderPerLocator(t *testing.T) {
	fetcher := newCountingFetcher()
	tracker := newTestTracker(t, fetcher)

	a := pageLoader(t, tracker.Page(1), slotAt(0, "https://cdn.example.com/oil.jpg"))
	b := pageLoader(t, tracker.Page(2), slotAt(5, "https://cdn.example.com/oil.jpg"))
	if a != b {
		t.Fatal("same locator produced two loaders")
	}
	pageLoader(t, tracker.Page(1), slotAt(1, "https://cdn.example.com/beans.jpg"))
	if got := tracker.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestTrackerKeepsFailedImageWithinTTL(t *testing.T) {
	const locator = "https://cdn.example.com/broken.jpg"
	fetcher := newCountingFetcher(locator)
	tracker := newTestTracker(t, fetcher)

	tracker.Page(1).Settle(context.Background(), []Slot{slotAt(0, locator)})
	fetcher.repair(locator)

	page := tracker.Page(1)
	page.Settle(context.Background(), []Slot{slotAt(0, locator)})
	if got := pageLoader(t, page, slotAt(0, locator)).State().Phase; got != imageload.PhaseFailed {
		t.Fatalf("phase = %v, want failed", got)
	}
	if got := fetcher.count(locator); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
}

func TestTrackerRetriesFailedImageAfterTTL(t *testing.T) {
	const locator = "https://cdn.example.com/flaky.jpg"
	fetcher := newCountingFetcher(locator)
	tracker := newTestTrackerWith(t, TrackerConfig{Fetcher: fetcher, FailedTTL: time.Millisecond})
	slot := slotAt(0, locator)

	first := tracker.Page(1)
	first.Settle(context.Background(), []Slot{slot})
	failed := pageLoader(t, first, slot)
	if got := failed.State().Phase; got != imageload.PhaseFailed {
		t.Fatalf("phase = %v, want failed", got)
	}
	time.Sleep(10 * time.Millisecond)
	// Within one page the failed state is what gets rendered.
	var buf bytes.Buffer
	if err := first.Image(slot).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), imageload.UnavailableText) {
		t.Fatalf("render = %s", buf.String())
	}

	fetcher.repair(locator)
	second := tracker.Page(1)
	second.Settle(context.Background(), []Slot{slot})
	recovered := pageLoader(t, second, slot)
	if recovered == failed {
		t.Fatal("failed loader was reused after its TTL")
	}
	if got := recovered.State().Phase; got != imageload.PhaseLoaded {
		t.Fatalf("phase = %v, want loaded", got)
	}
	if got := fetcher.count(locator); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
	select {
	case <-failed.Done():
	default:
		t.Fatal("replaced loader still running")
	}
	if got := tracker.Len(); got != 1 {
		t.Fatalf("Len = %d, want 1", got)
	}
}

func TestTrackerImageRendersState(t *testing.T) {
	fetcher := newCountingFetcher("https://cdn.example.com/broken.jpg")
	tracker := newTestTracker(t, fetcher)

	good := slotAt(0, "https://cdn.example.com/good.jpg")
	bad := slotAt(1, "https://cdn.example.com/broken.jpg")
	page := tracker.Page(1)
	page.Settle(context.Background(), []Slot{good, bad})

	var buf bytes.Buffer
	if err := page.Image(good).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `src="https://cdn.example.com/good.jpg"`) {
		t.Fatalf("good image not rendered: %s", buf.String())
	}

	buf.Reset()
	if err := page.Image(bad).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), imageload.UnavailableText) {
		t.Fatalf("broken image not marked unavailable: %s", buf.String())
	}
}

func TestTrackerInvalidRequestRendersUnavailable(t *testing.T) {
	tracker := newTestTracker(t, newCountingFetcher())
	var buf bytes.Buffer
	if err := tracker.Page(1).Image(slotAt(0, " ")).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), imageload.UnavailableText) {
		t.Fatalf("render = %s", buf.String())
	}
	if tracker.Len() != 0 {
		t.Fatal("invalid request was tracked")
	}
}

func TestTrackerClose(t *testing.T) {
	fetcher := imageload.FetcherFunc(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	tracker, err := NewImageTracker(TrackerConfig{Fetcher: fetcher})
	if err != nil {
		t.Fatalf("NewImageTracker: %v", err)
	}
	loader := pageLoader(t, tracker.Page(1), slotAt(0, "https://cdn.example.com/slow.jpg"))
	tracker.Close()
	select {
	case <-loader.Done():
	default:
		t.Fatal("loader still running after Close")
	}
	if _, err := tracker.Page(1).Loader(slotAt(0, "https://cdn.example.com/late.jpg")); err == nil {
		t.Fatal("expected Loader after Close to fail")
	}
	tracker.Close()
}

func TestPageRectAndCellRect(t *testing.T) {
	tracker := newTestTracker(t, newCountingFetcher())
	if got := PageRect(0); got.Y != 0 {
		t.Fatalf("PageRect(0).Y = %v, want 0", got.Y)
	}
	if got := PageRect(3); got.Y != 2*DefaultViewportHeight {
		t.Fatalf("PageRect(3).Y = %v", got.Y)
	}
	cell := tracker.CellRect(4)
	if cell.X != DefaultColumnWidth || cell.Y != DefaultRowHeight {
		t.Fatalf("CellRect(4) = %+v", cell)
	}
}
