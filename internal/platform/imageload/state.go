package imageload

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Phase is the visible load state of a Loader.
type Phase int

const (
	PhasePending Phase = iota
	PhaseLoaded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the complete load state of one Loader.
type State struct {
	Phase Phase
	// Attempt counts fetches issued so far; it is the attempt in flight
	// while InFlight is set.
	Attempt  int
	InFlight bool
	// Near is set once the element reached the trigger zone, or on mount
	// for eager requests.
	Near     bool
	Disposed bool
}

// Terminal reports whether no further automatic transition can happen.
func (s State) Terminal() bool {
	return s.Disposed || s.Phase != PhasePending
}

// EventKind enumerates the inputs of the state machine.
type EventKind int

const (
	EventMounted EventKind = iota
	EventNear
	EventFetchSucceeded
	EventFetchFailed
	EventRetryDue
	EventDisposed
)

// Event is one input of the state machine. Attempt ties fetch results and
// retry timers to the attempt that produced them.
type Event struct {
	Kind     EventKind
	Priority Priority
	Attempt  int
	Err      error
}

// EffectKind enumerates the work a Loader performs after a transition.
type EffectKind int

const (
	EffectWatchProximity EffectKind = iota
	EffectStartFetch
	EffectScheduleRetry
	EffectNotifyLoaded
	EffectReportExhausted
	EffectRelease
)

// Effect is one unit of work requested by Transition.
type Effect struct {
	Kind    EffectKind
	Attempt int
	Delay   time.Duration
	Err     error
}

// Policy bounds retries. MaxRetries counts fetches after the first one; zero
// means DefaultMaxRetries and NoRetries disables retrying.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Defaults for DefaultPolicy.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// NoRetries makes the first failure terminal.
const NoRetries = -1

// DefaultPolicy retries three times, after 1s, 2s and 3s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

func (p Policy) normalized() Policy {
	switch {
	case p.MaxRetries == 0:
		p.MaxRetries = DefaultMaxRetries
	case p.MaxRetries < 0:
		p.MaxRetries = NoRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// MaxAttempts is the total number of fetches the policy allows.
func (p Policy) MaxAttempts() int {
	p = p.normalized()
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the backoff before the attempt that follows failedAttempt.
func (p Policy) Delay(failedAttempt int) time.Duration {
	p = p.normalized()
	if failedAttempt < 1 {
		failedAttempt = 1
	}
	return p.BaseDelay * time.Duration(failedAttempt)
}

// Transition computes the next state and the effects to run for ev.
// Events that do not apply to s (stale attempts, duplicates, anything after
// a terminal state) leave s unchanged and yield no effects.
func (p Policy) Transition(s State, ev Event) (State, []Effect) {
	p = p.normalized()
	maxAttempts := p.MaxAttempts()
	if s.Disposed {
		return s, nil
	}
	if ev.Kind == EventDisposed {
		s.Disposed = true
		s.InFlight = false
		return s, []Effect{{Kind: EffectRelease}}
	}
	if s.Phase != PhasePending {
		return s, nil
	}

	switch ev.Kind {
	case EventMounted:
		if s.Near || s.Attempt > 0 {
			return s, nil
		}
		if ev.Priority == PriorityEager {
			s.Near = true
			return issue(s)
		}
		return s, []Effect{{Kind: EffectWatchProximity}}

	case EventNear:
		if s.Near {
			return s, nil
		}
		s.Near = true
		if s.InFlight || s.Attempt > 0 {
			return s, nil
		}
		return issue(s)

	case EventFetchSucceeded:
		if !s.InFlight || ev.Attempt != s.Attempt {
			return s, nil
		}
		s.InFlight = false
		s.Phase = PhaseLoaded
		return s, []Effect{{Kind: EffectNotifyLoaded, Attempt: s.Attempt}}

	case EventFetchFailed:
		if !s.InFlight || ev.Attempt != s.Attempt {
			return s, nil
		}
		s.InFlight = false
		if s.Attempt < maxAttempts {
			return s, []Effect{{
				Kind:    EffectScheduleRetry,
				Attempt: s.Attempt,
				Delay:   p.Delay(s.Attempt),
				Err:     ev.Err,
			}}
		}
		s.Phase = PhaseFailed
		return s, []Effect{{Kind: EffectReportExhausted, Attempt: s.Attempt, Err: ev.Err}}

	case EventRetryDue:
		if s.InFlight || !s.Near || ev.Attempt != s.Attempt || s.Attempt >= maxAttempts {
			return s, nil
		}
		return issue(s)
	}
	return s, nil
}

func issue(s State) (State, []Effect) {
	s.Attempt++
	s.InFlight = true
	return s, []Effect{{Kind: EffectStartFetch, Attempt: s.Attempt}}
}

// RetryParam is the query parameter that busts caches on retries.
const RetryParam = "retry"

// AttemptLocator returns the locator to fetch for attempt. The first attempt
// uses locator unchanged; attempt n > 1 carries retry=n-1 so a cached failure
// is not served again. Existing query parameters keep their order.
func AttemptLocator(locator string, attempt int) string {
	if attempt <= 1 {
		return locator
	}
	retry := strconv.Itoa(attempt - 1)
	u, err := url.Parse(locator)
	if err != nil {
		sep := "?"
		if strings.Contains(locator, "?") {
			sep = "&"
		}
		return locator + sep + RetryParam + "=" + retry
	}
	if u.Scheme == "data" {
		return locator
	}
	query := u.Query()
	if query.Has(RetryParam) {
		query.Set(RetryParam, retry)
		u.RawQuery = query.Encode()
		return u.String()
	}
	if u.RawQuery == "" {
		u.RawQuery = RetryParam + "=" + retry
	} else {
		u.RawQuery += "&" + RetryParam + "=" + retry
	}
	return u.String()
}
