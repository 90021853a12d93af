package imageload

import (
	"errors"
	"fmt"
)

// ErrExhaustedRetries marks a Loader that gave up after its last retry failed.
var ErrExhaustedRetries = errors.New("image retries exhausted")

// ErrAlreadyMounted is returned when Mount is called twice on one Loader.
var ErrAlreadyMounted = errors.New("image loader already mounted")

// TransientFetchFailure wraps the network, status or decode error of one attempt.
type TransientFetchFailure struct {
	Locator string
	Attempt int
	Err     error
}

func (e *TransientFetchFailure) Error() string {
	return fmt.Sprintf("fetch %s (attempt %d): %v", e.Locator, e.Attempt, e.Err)
}

func (e *TransientFetchFailure) Unwrap() error {
	return e.Err
}
