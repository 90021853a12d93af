// Package inquiry validates visitor orders and inquiries, builds the WhatsApp
// hand-off link and relays submissions to the CRM webhook.
package inquiry

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/ounjeeh/staples/internal/services/inquiry/locations"
)

// Mode is the kind of submission.
type Mode string

const (
	ModeOrder   Mode = "order"
	ModeInquiry Mode = "inquiry"
)

// ParseMode maps raw form input to a Mode. Anything but "order" is an inquiry.
func ParseMode(raw string) Mode {
	if strings.EqualFold(strings.TrimSpace(raw), string(ModeOrder)) {
		return ModeOrder
	}
	return ModeInquiry
}

// MaxMessageRunes bounds the free-text note.
const MaxMessageRunes = 1000

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[\d\s+()-]{10,}$`)
)

// Submission is one visitor form.
type Submission struct {
	Name        string
	Email       string
	Phone       string
	Message     string
	Mode        Mode
	ProductName string
	State       string
	City        string
}

// FieldErrors maps form fields to messages.
type FieldErrors map[string]string

// Error lists the failing fields.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "invalid " + strings.Join(fields, ", ")
}

// Normalize trims the submission and reduces the message to plain text.
func (s Submission) Normalize() Submission {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.ProductName = strings.TrimSpace(s.ProductName)
	s.State = strings.TrimSpace(s.State)
	s.City = strings.TrimSpace(s.City)
	s.Message = PlainText(s.Message)
	if s.Mode != ModeOrder {
		s.Mode = ModeInquiry
	}
	if canonical, ok := locations.Canonical(s.State); ok {
		s.State = canonical
	}
	return s
}

// Validate checks a normalized submission.
func (s Submission) Validate() error {
	errs := FieldErrors{}
	if utf8.RuneCountInString(s.Name) < 2 {
		errs["name"] = "Please enter a valid name (at least 2 characters)"
	}
	if !emailPattern.MatchString(s.Email) {
		errs["email"] = "Please enter a valid email address"
	}
	if !phonePattern.MatchString(s.Phone) {
		errs["phone"] = "Please enter a valid phone number"
	}
	if s.State != "" || s.City != "" {
		if !locations.Valid(s.State, s.City) {
			errs["location"] = "Please choose a state and city from the list"
		}
	}
	if utf8.RuneCountInString(s.Message) > MaxMessageRunes {
		errs["message"] = "Please keep the note under 1000 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// AsFieldErrors extracts FieldErrors from err.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// PlainText strips markup from a free-text note and collapses whitespace.
// Script and style contents are dropped.
func PlainText(raw string) string {
	z := html.NewTokenizer(strings.NewReader(raw))
	var (
		b    strings.Builder
		skip int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// Payload is the JSON body sent to the CRM webhook.
type Payload struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	Mode        Mode   `json:"mode"`
	ProductName string `json:"productName"`
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// NewPayload builds the webhook body for s submitted at at.
func NewPayload(s Submission, at time.Time) Payload {
	product := s.ProductName
	if product == "" {
		product = "N/A"
	}
	return Payload{
		Name:        s.Name,
		Email:       s.Email,
		Phone:       s.Phone,
		Message:     s.Message,
		Mode:        s.Mode,
		ProductName: product,
		State:       s.State,
		City:        s.City,
		Timestamp:   at.UTC().Format(time.RFC3339Nano),
	}
}
