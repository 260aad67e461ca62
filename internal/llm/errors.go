package llm

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindRateLimited   Kind = "rate_limited"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindEmpty         Kind = "empty"
	KindUnknown       Kind = "unknown"
)

const defaultQuotaWait = 60 * time.Second

// Error is the stable failure type returned by Service.Generate.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns KindUnknown for errors that did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

type classifyRule struct {
	marker string
	build  func(msg string, err error) *Error
}

var retryInRe = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// Upstream providers only tell us what went wrong in the message text, so the
// markers are matched case-sensitively in table order.
var classifyRules = []classifyRule{
	{
		marker: "Quota exceeded",
		build: func(msg string, err error) *Error {
			wait := defaultQuotaWait
			if m := retryInRe.FindStringSubmatch(msg); m != nil {
				if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
					wait = time.Duration(math.Ceil(secs)) * time.Second
				}
			}
			return &Error{
				Kind: KindQuotaExceeded,
				Message: fmt.Sprintf("API quota exceeded. Please wait %d seconds and try again. "+
					"Consider using shorter messages to reduce token usage.", int(wait/time.Second)),
				RetryAfter: wait,
				Err:        err,
			}
		},
	},
	{
		marker: "Rate limit",
		build: func(_ string, err error) *Error {
			return &Error{
				Kind:    KindRateLimited,
				Message: "Too many requests. Please wait a moment and try again.",
				Err:     err,
			}
		},
	},
}

// Classify maps a backend failure onto the taxonomy. Errors that are already
// classified pass through untouched.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := err.Error()
	for _, rule := range classifyRules {
		if strings.Contains(msg, rule.marker) {
			return rule.build(msg, err)
		}
	}
	return &Error{
		Kind:    KindUnknown,
		Message: "Failed to generate response: " + msg,
		Err:     err,
	}
}

const redacted = "[REDACTED]"

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// Redact returns a copy of e with every non-empty secret masked in its message
// and in the text of the wrapped cause. The cause chain stays reachable for errors.Is.
func Redact(e *Error, secrets ...string) *Error {
	if e == nil {
		return nil
	}
	out := *e
	out.Message = scrub(e.Message, secrets)
	if e.Err != nil {
		if text := scrub(e.Err.Error(), secrets); text != e.Err.Error() {
			out.Err = &redactedError{msg: text, err: e.Err}
		}
	}
	return &out
}

func scrub(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return s
}
