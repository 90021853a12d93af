package site

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/ounjeeh/staples/internal/platform/imageload"
)

// Grid metrics used to place listing images. A listing page is one viewport
// tall.
const (
	DefaultColumns        = 3
	DefaultRowHeight      = 420.0
	DefaultColumnWidth    = 380.0
	DefaultViewportHeight = 900.0
	DefaultSettle         = 1500 * time.Millisecond
	// DefaultFailedTTL is how long a failed image keeps rendering as
	// unavailable before the next page view tries it again.
	DefaultFailedTTL = 30 * time.Second
)

// TrackerConfig wires an ImageTracker.
type TrackerConfig struct {
	Fetcher imageload.Fetcher
	Policy  imageload.Policy
	Clock   imageload.Clock
	Logger  *zap.Logger
	Columns int
	// Settle bounds how long a page waits for its images.
	Settle time.Duration
	// FailedTTL is how long a failed loader is kept; zero means
	// DefaultFailedTTL.
	FailedTTL time.Duration
}

// Slot places one image in a listing grid.
type Slot struct {
	Request imageload.Request
	// Index is the card position in the listing.
	Index int
}

// tracked is one loader plus the gate its lazy watch waits on.
type tracked struct {
	loader *imageload.Loader
	gate   *gate

	mu       sync.Mutex
	failedAt time.Time
}

func (e *tracked) failedSince() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failedAt, !e.failedAt.IsZero()
}

// gate is the ProximityWatcher of one tracked loader. The loader's element is
// near as soon as any page showing it is near, so pages open the gate rather
// than scrolling a shared viewport.
type gate struct {
	once   sync.Once
	signal chan struct{}
}

func newGate() *gate {
	return &gate{signal: make(chan struct{})}
}

func (g *gate) NotifyWhenNear(context.Context, imageload.Rect, float64) <-chan struct{} {
	return g.signal
}

func (g *gate) open() {
	g.once.Do(func() { close(g.signal) })
}

// ImageTracker keeps one Loader per image locator so repeated page views share
// fetch state. Each request positions its own viewport through Page.
type ImageTracker struct {
	fetcher   imageload.Fetcher
	policy    imageload.Policy
	clock     imageload.Clock
	logger    *zap.Logger
	columns   int
	settle    time.Duration
	failedTTL time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	entries map[string]*tracked
}

// NewImageTracker builds an empty tracker.
func NewImageTracker(cfg TrackerConfig) (*ImageTracker, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = imageload.SystemClock()
	}
	columns := cfg.Columns
	if columns <= 0 {
		columns = DefaultColumns
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	failedTTL := cfg.FailedTTL
	if failedTTL <= 0 {
		failedTTL = DefaultFailedTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ImageTracker{
		fetcher:   cfg.Fetcher,
		policy:    cfg.Policy,
		clock:     clock,
		logger:    logger,
		columns:   columns,
		settle:    settle,
		failedTTL: failedTTL,
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]*tracked),
	}, nil
}

// PageRect is the viewport covering listing page n, counted from 1.
func PageRect(n int) imageload.Rect {
	if n < 1 {
		n = 1
	}
	return imageload.Rect{
		X:      0,
		Y:      float64(n-1) * DefaultViewportHeight,
		Width:  DefaultColumnWidth * DefaultColumns,
		Height: DefaultViewportHeight,
	}
}

// CellRect is the layout box of the card at index.
func (t *ImageTracker) CellRect(index int) imageload.Rect {
	row, col := index/t.columns, index%t.columns
	return imageload.Rect{
		X:      float64(col) * DefaultColumnWidth,
		Y:      float64(row) * DefaultRowHeight,
		Width:  DefaultColumnWidth,
		Height: DefaultRowHeight,
	}
}

// Page starts one rendering of listing page n. A Page belongs to a single
// request and resolves each locator once, so the state it settles on is the
// state it renders.
func (t *ImageTracker) Page(n int) *Page {
	return &Page{
		tracker:  t,
		viewport: imageload.NewViewport(PageRect(n)),
		resolved: make(map[string]pageImage),
	}
}

// track returns the entry for req, mounting a loader on first use and
// replacing one that has been failed for longer than the failed TTL.
func (t *ImageTracker) track(req imageload.Request, element imageload.Rect) (*tracked, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, errors.New("image tracker is closed")
	}
	if entry, ok := t.entries[req.Locator]; ok {
		failedAt, failed := entry.failedSince()
		if !failed || t.clock.Now().Sub(failedAt) < t.failedTTL {
			return entry, nil
		}
		t.logger.Info("retrying failed image", zap.String("locator", req.Locator))
		entry.loader.Unmount()
		delete(t.entries, req.Locator)
	}

	entry := &tracked{gate: newGate()}
	loader, err := imageload.New(req, imageload.Options{
		Fetcher: t.fetcher,
		Watcher: entry.gate,
		Element: element,
		Policy:  t.policy,
		Clock:   t.clock,
		Logger:  t.logger,
		OnChange: func(s imageload.State) {
			if s.Phase != imageload.PhaseFailed {
				return
			}
			entry.mu.Lock()
			entry.failedAt = t.clock.Now()
			entry.mu.Unlock()
		},
	})
	if err != nil {
		return nil, err
	}
	entry.loader = loader
	if err := loader.Mount(t.ctx); err != nil {
		return nil, err
	}
	t.entries[req.Locator] = entry
	return entry, nil
}

// Len reports how many locators are tracked.
func (t *ImageTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close unmounts every loader.
func (t *ImageTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	entries := make([]*tracked, 0, len(t.entries))
	for _, entry := range t.entries {
		entries = append(entries, entry)
	}
	t.entries = map[string]*tracked{}
	t.mu.Unlock()

	for _, entry := range entries {
		entry.loader.Unmount()
	}
	t.cancel()
}

// Page is one request's view of the tracker, with its own viewport.
type Page struct {
	tracker  *ImageTracker
	viewport *imageload.Viewport

	mu       sync.Mutex
	resolved map[string]pageImage
}

type pageImage struct {
	loader *imageload.Loader
	near   bool
}

// Loader returns the loader for slot's locator. Cards in the first grid row
// are eager; any other card is released once it is near this page's
// viewport.
func (p *Page) Loader(slot Slot) (*imageload.Loader, error) {
	img, err := p.resolve(slot)
	return img.loader, err
}

func (p *Page) resolve(slot Slot) (pageImage, error) {
	req := slot.Request
	if slot.Index < p.tracker.columns {
		req.Priority = imageload.PriorityEager
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if img, ok := p.resolved[req.Locator]; ok {
		return img, nil
	}
	element := p.tracker.CellRect(slot.Index)
	entry, err := p.tracker.track(req, element)
	if err != nil {
		return pageImage{}, err
	}
	img := pageImage{loader: entry.loader}
	if req.Priority == imageload.PriorityEager || p.near(element) {
		entry.gate.open()
		img.near = true
	} else {
		img.near = entry.loader.State().Near
	}
	p.resolved[req.Locator] = img
	return img, nil
}

func (p *Page) near(element imageload.Rect) bool {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	select {
	case <-p.viewport.NotifyWhenNear(ctx, element, imageload.DefaultMargin):
		return true
	default:
		return false
	}
}

// Image renders slot's current visual state. An invalid request renders the
// unavailable indicator.
func (p *Page) Image(slot Slot) templ.Component {
	loader, err := p.Loader(slot)
	if err != nil {
		p.tracker.logger.Warn("track image", zap.String("locator", slot.Request.Locator), zap.Error(err))
		return imageload.StateView(slot.Request, imageload.State{Phase: imageload.PhaseFailed})
	}
	return imageload.View(loader)
}

// Settle waits up to the settle timeout for the slots near the page's
// viewport to finish loading.
func (p *Page) Settle(ctx context.Context, slots []Slot) {
	ctx, cancel := context.WithTimeout(ctx, p.tracker.settle)
	defer cancel()
	for _, slot := range slots {
		img, err := p.resolve(slot)
		if err != nil || !img.near {
			continue
		}
		if _, err := img.loader.Wait(ctx); err != nil {
			return
		}
	}
}
