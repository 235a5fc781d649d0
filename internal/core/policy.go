package core

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultMaxMessageBytes = 4096
	DefaultMaxMessageRunes = 2000
)

// MessagePolicy bounds message bodies before they are stored. Zero limits
// fall back to the defaults. RejectMarkup refuses bodies containing HTML
// tags; bodies are never rewritten.
type MessagePolicy struct {
	MaxBytes     int
	MaxRunes     int
	RejectMarkup bool
}

// DefaultMessagePolicy returns the policy used when nothing is configured.
func DefaultMessagePolicy() MessagePolicy {
	return MessagePolicy{
		MaxBytes: DefaultMaxMessageBytes,
		MaxRunes: DefaultMaxMessageRunes,
	}
}

type bodyValidator struct {
	policy MessagePolicy
	strict *bluemonday.Policy
}

func newBodyValidator(p MessagePolicy) *bodyValidator {
	if p.MaxBytes <= 0 {
		p.MaxBytes = DefaultMaxMessageBytes
	}
	if p.MaxRunes <= 0 {
		p.MaxRunes = DefaultMaxMessageRunes
	}
	v := &bodyValidator{policy: p}
	if p.RejectMarkup {
		v.strict = bluemonday.StrictPolicy()
	}
	return v
}

// clean validates body and returns the text to persist, which is always the
// body as sent.
func (v *bodyValidator) clean(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyMessage
	}
	if len(body) > v.policy.MaxBytes {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrMessageTooLong, v.policy.MaxBytes)
	}
	if !utf8.ValidString(body) {
		return "", fmt.Errorf("%w: not valid utf-8", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(body) > v.policy.MaxRunes {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrMessageTooLong, v.policy.MaxRunes)
	}

	if v.strict != nil {
		// StrictPolicy escapes plain text as well as dropping tags; compare
		// unescaped forms so only stripped tags count as markup.
		if html.UnescapeString(v.strict.Sanitize(body)) != html.UnescapeString(body) {
			return "", fmt.Errorf("%w: markup is not allowed", ErrInvalidMessage)
		}
	}
	return body, nil
}
