package imageload

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const waitTimeout = 2 * time.Second

type fakeClock struct {
	mu        sync.Mutex
	now       time.Time
	timers    []*fakeTimer
	scheduled chan time.Duration
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:       time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		scheduled: make(chan time.Duration, 16),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	c.mu.Unlock()
	c.scheduled <- d
	return timer
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()
	for _, timer := range due {
		timer.f()
	}
}

func (c *fakeClock) nextScheduled(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-c.scheduled:
		return d
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a retry to be scheduled")
		return 0
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

var errBroken = errors.New("connection reset")

// scriptedFetcher returns results in order; once exhausted it keeps
// returning the last one.
type scriptedFetcher struct {
	mu       sync.Mutex
	results  []error
	locators []string
	calls    chan string
}

func newScriptedFetcher(results ...error) *scriptedFetcher {
	return &scriptedFetcher{results: results, calls: make(chan string, 16)}
}

func (f *scriptedFetcher) Fetch(_ context.Context, locator string) error {
	f.mu.Lock()
	idx := len(f.locators)
	f.locators = append(f.locators, locator)
	var err error
	if len(f.results) > 0 {
		if idx >= len(f.results) {
			idx = len(f.results) - 1
		}
		err = f.results[idx]
	}
	f.mu.Unlock()
	f.calls <- locator
	return err
}

func (f *scriptedFetcher) Locators() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.locators...)
}

func (f *scriptedFetcher) nextCall(t *testing.T) string {
	t.Helper()
	select {
	case locator := <-f.calls:
		return locator
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a fetch")
		return ""
	}
}

// blockingFetcher holds every fetch until release is closed.
type blockingFetcher struct {
	started    chan struct{}
	release    chan struct{}
	honourCtx  bool
	returned   chan error
	startedOne sync.Once
}

func newBlockingFetcher(honourCtx bool) *blockingFetcher {
	return &blockingFetcher{
		started:   make(chan struct{}),
		release:   make(chan struct{}),
		honourCtx: honourCtx,
		returned:  make(chan error, 1),
	}
}

func (f *blockingFetcher) Fetch(ctx context.Context, _ string) error {
	f.startedOne.Do(func() { close(f.started) })
	var err error
	if f.honourCtx {
		select {
		case <-f.release:
		case <-ctx.Done():
			err = ctx.Err()
		}
	} else {
		<-f.release
	}
	f.returned <- err
	return err
}

type changeRecorder struct {
	mu     sync.Mutex
	states []State
	loaded int
}

func (r *changeRecorder) onChange(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *changeRecorder) onLoaded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded++
}

func (r *changeRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states), r.loaded
}

func waitDone(t *testing.T, l *Loader) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	state, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("wait for loader: %v (state %+v)", err, state)
	}
	return state
}
