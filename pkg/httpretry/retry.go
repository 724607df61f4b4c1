// Package httpretry wraps outbound calls with bounded exponential backoff.
// Only upstream throttling (429) and server errors (5xx) are retried; every
// other status is handed back to the caller untouched.
package httpretry

import (
	"context"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 800 * time.Millisecond

	maxJitter = 250 * time.Millisecond
)

// Policy bounds the retry loop. MaxAttempts counts retries after the first
// call, so a request is performed at most MaxAttempts+1 times.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

func (p Policy) delay(attempt int) time.Duration {
	return p.BaseDelay*(1<<uint(attempt)) + time.Duration(rand.Int63n(int64(maxJitter)))
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Do performs the request produced by build, retrying on 429/5xx until the
// attempt budget runs out. The last response is returned either way; status
// interpretation stays with the caller. build is invoked once per attempt so
// request bodies are never reused.
func Do(ctx context.Context, client *http.Client, policy Policy, build func() (*http.Request, error)) (*http.Response, error) {
	policy = policy.withDefaults()
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}

		if !retryableStatus(resp.StatusCode) || attempt >= policy.MaxAttempts {
			return resp, nil
		}

		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}
}

var statusTokenRe = regexp.MustCompile(`(^|[^0-9])(429|5[0-9]{2})([^0-9]|$)`)

// IsTransientMessage reports whether an error message surfaced by a
// collaborator describes a throttling or server-side failure.
func IsTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "service unavailable") {
		return true
	}
	return statusTokenRe.MatchString(msg)
}

// DoFunc retries an arbitrary fallible operation whose errors carry the
// upstream status in their message, the way SDK clients surface HTTP
// failures. Non-transient errors are returned immediately.
func DoFunc(ctx context.Context, policy Policy, op func() error) error {
	policy = policy.withDefaults()

	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil || !IsTransientMessage(err.Error()) || attempt >= policy.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}
}
