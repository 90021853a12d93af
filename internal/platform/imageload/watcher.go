package imageload

import (
	"context"
	"sync"
)

// DefaultMargin is the trigger margin used when Options.Margin is zero.
const DefaultMargin = 50

// Rect is an axis-aligned box in layout units.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Expand grows r by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// Intersects reports whether r and o overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.Width && o.X <= r.X+r.Width &&
		r.Y <= o.Y+o.Height && o.Y <= r.Y+r.Height
}

// ProximityWatcher reports when an element comes within margin of the viewport.
//
// NotifyWhenNear returns a channel that is closed once, the first time the
// element is near. Cancelling ctx releases the watch; the channel then never
// closes.
type ProximityWatcher interface {
	NotifyWhenNear(ctx context.Context, element Rect, margin float64) <-chan struct{}
}

// Immediate treats every element as near. It suits renderers without a viewport.
type Immediate struct{}

var closedSignal = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NotifyWhenNear returns an already closed channel.
func (Immediate) NotifyWhenNear(context.Context, Rect, float64) <-chan struct{} {
	return closedSignal
}

type viewportWatch struct {
	element Rect
	margin  float64
	signal  chan struct{}
	stop    func() bool
}

// Viewport is a ProximityWatcher fed with viewport positions. Each watch fires
// at most once and is forgotten as soon as it fires or its context ends.
type Viewport struct {
	mu      sync.Mutex
	view    Rect
	nextID  uint64
	watches map[uint64]*viewportWatch
}

// NewViewport starts tracking a viewport at view.
func NewViewport(view Rect) *Viewport {
	return &Viewport{view: view, watches: make(map[uint64]*viewportWatch)}
}

// NotifyWhenNear registers a one-shot watch for element.
func (v *Viewport) NotifyWhenNear(ctx context.Context, element Rect, margin float64) <-chan struct{} {
	if ctx == nil {
		ctx = context.Background()
	}
	if margin < 0 {
		margin = 0
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if near(v.view, element, margin) {
		return closedSignal
	}
	if ctx.Err() != nil {
		return make(chan struct{})
	}
	id := v.nextID
	v.nextID++
	w := &viewportWatch{element: element, margin: margin, signal: make(chan struct{})}
	w.stop = context.AfterFunc(ctx, func() { v.forget(id) })
	v.watches[id] = w
	return w.signal
}

// Scroll moves the viewport and fires every watch that is now near.
func (v *Viewport) Scroll(view Rect) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.view = view
	for id, w := range v.watches {
		if !near(view, w.element, w.margin) {
			continue
		}
		delete(v.watches, id)
		w.stop()
		close(w.signal)
	}
}

// View returns the current viewport.
func (v *Viewport) View() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

// Pending returns the number of watches that have not fired yet.
func (v *Viewport) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watches)
}

func (v *Viewport) forget(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.watches, id)
}

func near(view, element Rect, margin float64) bool {
	return view.Expand(margin).Intersects(element)
}
