package imageload

import (
	"errors"
	"fmt"
	"strings"
)

// Priority selects when the first fetch is issued.
type Priority int

const (
	// PriorityLazy waits for the element to come near the viewport.
	PriorityLazy Priority = iota
	// PriorityEager fetches on mount.
	PriorityEager
)

// String returns the HTML loading attribute value for p.
func (p Priority) String() string {
	switch p {
	case PriorityEager:
		return "eager"
	case PriorityLazy:
		return "lazy"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority maps an HTML loading attribute value to a Priority.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "lazy":
		return PriorityLazy, nil
	case "eager":
		return PriorityEager, nil
	default:
		return PriorityLazy, fmt.Errorf("unknown loading priority %q", value)
	}
}

// Request describes one image to display. Width and Height are display
// hints; zero means unset.
type Request struct {
	Locator  string
	AltText  string
	Width    int
	Height   int
	Priority Priority
}

// Validate checks the request before a Loader is built for it.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Locator) == "" {
		return errors.New("image locator is required")
	}
	if r.Width < 0 || r.Height < 0 {
		return errors.New("image dimensions must not be negative")
	}
	if r.Priority != PriorityLazy && r.Priority != PriorityEager {
		return fmt.Errorf("unknown loading priority %d", int(r.Priority))
	}
	return nil
}
