// Package imageload fetches display images lazily and survives transient failures.
//
// A Loader owns one Request. Eager requests fetch as soon as they are mounted;
// lazy requests wait for a ProximityWatcher to report that the element came
// within the trigger margin of the viewport. Failed attempts are retried after
// a linear backoff (BaseDelay times the failed attempt number) with a
// cache-busting query parameter, until Policy.MaxRetries retries have failed.
// The terminal failure is rendered as an "Image unavailable" indicator and is
// never returned to the caller as an error.
//
// Transitions are computed by Policy.Transition, a pure function of the
// current State and an Event. The Loader only executes the effects it returns,
// from a single event-loop goroutine, so at most one fetch is in flight and
// nothing observes the Loader after Unmount returns.
package imageload
