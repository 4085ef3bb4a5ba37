package content

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	policy     = bluemonday.UGCPolicy()
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Sanitize removes unsafe HTML from the input string using a strict policy.
// It is used for sanitizing user inputs like contact names and message text
// before they are persisted.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// RenderMessage converts message markdown to HTML safe for display. The
// rendered output is sanitized again so markup smuggled through markdown
// cannot survive.
func RenderMessage(text string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return strings.TrimSpace(policy.Sanitize(buf.String())), nil
}

// ValidateEmail checks that the address has a plausible mailbox@domain shape.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("email is not a valid address")
	}
	return nil
}
