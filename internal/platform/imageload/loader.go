package imageload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Options wires a Loader to its collaborators.
type Options struct {
	Fetcher Fetcher
	// Watcher gates lazy requests. Nil means Immediate.
	Watcher ProximityWatcher
	// Element is the layout box handed to Watcher.
	Element Rect
	// Margin is the trigger margin; zero means DefaultMargin.
	Margin float64
	Policy Policy
	Clock  Clock
	Logger *zap.Logger
	// OnLoaded runs once, on the loader goroutine, when a fetch succeeds.
	OnLoaded func()
	// OnChange runs on the loader goroutine after every state change.
	OnChange func(State)
}

// Loader drives one Request through the load state machine.
//
// Callbacks run on the loader goroutine and must not call Unmount.
type Loader struct {
	req      Request
	fetcher  Fetcher
	watcher  ProximityWatcher
	element  Rect
	margin   float64
	policy   Policy
	clock    Clock
	logger   *zap.Logger
	onLoaded func()
	onChange func(State)

	events chan Event
	done   chan struct{}

	lifeMu    sync.Mutex
	mounted   bool
	unmounted bool
	ctx       context.Context
	cancel    context.CancelFunc

	mu    sync.RWMutex
	state State
	err   error

	// Owned by whichever goroutine is applying events.
	timer       Timer
	watchCancel context.CancelFunc
	fetchCancel context.CancelFunc
}

// New validates req and builds an unmounted Loader.
func New(req Request, opts Options) (*Loader, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if opts.Fetcher == nil {
		return nil, errors.New("image fetcher is required")
	}
	watcher := opts.Watcher
	if watcher == nil {
		watcher = Immediate{}
	}
	margin := opts.Margin
	if margin == 0 {
		margin = DefaultMargin
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		req:      req,
		fetcher:  opts.Fetcher,
		watcher:  watcher,
		element:  opts.Element,
		margin:   margin,
		policy:   opts.Policy.normalized(),
		clock:    clock,
		logger:   logger.With(zap.String("locator", req.Locator)),
		onLoaded: opts.OnLoaded,
		onChange: opts.OnChange,
		events:   make(chan Event),
		done:     make(chan struct{}),
	}, nil
}

// Request returns the request the loader was built for.
func (l *Loader) Request() Request {
	return l.req
}

// State returns a snapshot of the load state.
func (l *Loader) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the terminal error once the loader has failed. It wraps
// ErrExhaustedRetries and the last TransientFetchFailure.
func (l *Loader) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Src returns the locator of the latest attempt.
func (l *Loader) Src() string {
	return AttemptLocator(l.req.Locator, l.State().Attempt)
}

// Done is closed when the loader reaches a terminal state or is unmounted.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until Done or ctx ends and returns the state at that point.
func (l *Loader) Wait(ctx context.Context) (State, error) {
	select {
	case <-l.done:
		return l.State(), nil
	case <-ctx.Done():
		return l.State(), ctx.Err()
	}
}

// Mount starts the loader. Eager requests have their first fetch issued
// before Mount returns. Cancelling ctx has the same effect as Unmount,
// except that it does not wait.
func (l *Loader) Mount(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.lifeMu.Lock()
	if l.mounted {
		l.lifeMu.Unlock()
		return ErrAlreadyMounted
	}
	l.mounted = true
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.lifeMu.Unlock()

	l.apply(Event{Kind: EventMounted, Priority: l.req.Priority})
	go l.run()
	return nil
}

// Unmount releases the retry timer and proximity watch, cancels the
// in-flight fetch and waits for the loader goroutine to exit. No state
// change or callback happens after Unmount returns. A fetch that ignores
// cancellation is left to finish and its result is discarded.
func (l *Loader) Unmount() {
	l.lifeMu.Lock()
	if !l.mounted || l.unmounted {
		l.lifeMu.Unlock()
		return
	}
	l.unmounted = true
	cancel := l.cancel
	l.lifeMu.Unlock()

	cancel()
	<-l.done
}

func (l *Loader) run() {
	defer close(l.done)
	for {
		if l.State().Terminal() {
			l.release()
			return
		}
		select {
		case <-l.ctx.Done():
			l.apply(Event{Kind: EventDisposed})
			return
		case ev := <-l.events:
			// select picks at random when both are ready; teardown wins.
			if l.ctx.Err() != nil {
				l.apply(Event{Kind: EventDisposed})
				return
			}
			l.apply(ev)
		}
	}
}

// post hands ev to the loader goroutine unless the loader is gone.
func (l *Loader) post(ev Event) {
	select {
	case l.events <- ev:
	case <-l.ctx.Done():
	case <-l.done:
	}
}

func (l *Loader) apply(ev Event) {
	l.mu.Lock()
	prev := l.state
	next, effects := l.policy.Transition(prev, ev)
	l.state = next
	l.mu.Unlock()

	for _, eff := range effects {
		l.execute(eff)
	}
	if next != prev && !next.Disposed && l.onChange != nil {
		l.onChange(next)
	}
}

func (l *Loader) execute(eff Effect) {
	switch eff.Kind {
	case EffectWatchProximity:
		l.watch()
	case EffectStartFetch:
		l.startFetch(eff.Attempt)
	case EffectScheduleRetry:
		l.logger.Warn("image fetch failed, retrying",
			zap.Int("attempt", eff.Attempt),
			zap.Duration("retry_in", eff.Delay),
			zap.Error(eff.Err),
		)
		attempt := eff.Attempt
		l.timer = l.clock.AfterFunc(eff.Delay, func() {
			l.post(Event{Kind: EventRetryDue, Attempt: attempt})
		})
	case EffectNotifyLoaded:
		l.logger.Debug("image loaded", zap.Int("attempt", eff.Attempt))
		if l.onLoaded != nil {
			l.onLoaded()
		}
	case EffectReportExhausted:
		terminal := fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, eff.Attempt, eff.Err)
		l.mu.Lock()
		l.err = terminal
		l.mu.Unlock()
		l.logger.Error("image unavailable",
			zap.Int("attempts", eff.Attempt),
			zap.Error(eff.Err),
		)
	case EffectRelease:
		l.release()
	}
}

func (l *Loader) watch() {
	ctx, cancel := context.WithCancel(l.ctx)
	l.watchCancel = cancel
	signal := l.watcher.NotifyWhenNear(ctx, l.element, l.margin)
	go func() {
		select {
		case <-signal:
			l.post(Event{Kind: EventNear})
		case <-ctx.Done():
		}
	}()
}

func (l *Loader) startFetch(attempt int) {
	if l.watchCancel != nil {
		l.watchCancel()
		l.watchCancel = nil
	}
	ctx, cancel := context.WithCancel(l.ctx)
	l.fetchCancel = cancel
	locator := AttemptLocator(l.req.Locator, attempt)
	go func() {
		defer cancel()
		err := l.fetcher.Fetch(ctx, locator)
		if err != nil {
			l.post(Event{
				Kind:    EventFetchFailed,
				Attempt: attempt,
				Err:     &TransientFetchFailure{Locator: locator, Attempt: attempt, Err: err},
			})
			return
		}
		l.post(Event{Kind: EventFetchSucceeded, Attempt: attempt})
	}()
}

func (l *Loader) release() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.watchCancel != nil {
		l.watchCancel()
		l.watchCancel = nil
	}
	if l.fetchCancel != nil {
		l.fetchCancel()
		l.fetchCancel = nil
	}
}
