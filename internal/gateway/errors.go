package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
)

// ErrNotFound marks resources that resolved to nothing: deleted repos,
// private profiles, forbidden endpoints. Callers treat it as an empty
// result, not a failure.
var ErrNotFound = errors.New("gateway: resource not found")

// RateLimitError is fatal for the current phase. It carries the reset
// time so the caller can report when work may resume.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gateway: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC1123))
}

// errClass buckets a failure for the retry loop.
type errClass int

const (
	classOK errClass = iota
	classTransient
	classRateLimit
	classNotFound
	classFatal
)

// classifyErr maps an error onto the retry taxonomy. Secondary-limit
// throttles are transient; primary rate-limit exhaustion is not.
func classifyErr(err error) errClass {
	if err == nil {
		return classOK
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return classRateLimit
	}
	var ownRateErr *RateLimitError
	if errors.As(err, &ownRateErr) {
		return classRateLimit
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return classTransient
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch code := respErr.Response.StatusCode; {
		case code == 404 || code == 403 || code == 410 || code == 451:
			return classNotFound
		case code >= 500:
			return classTransient
		default:
			return classFatal
		}
	}
	if errors.Is(err, ErrNotFound) {
		return classNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	// The GraphQL client surfaces API failures as plain strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"):
		return classRateLimit
	case strings.Contains(msg, "502") || strings.Contains(msg, "503") ||
		strings.Contains(msg, "504") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset"):
		return classTransient
	case strings.Contains(msg, "could not resolve to a user") ||
		strings.Contains(msg, "could not resolve to a repository") ||
		strings.Contains(msg, "not found"):
		return classNotFound
	}
	return classFatal
}

// IsNotFound reports whether the error means "nothing there" rather than
// a real failure.
func IsNotFound(err error) bool {
	return classifyErr(err) == classNotFound
}

// IsRateLimited reports whether the error is primary-quota exhaustion.
func IsRateLimited(err error) bool {
	return classifyErr(err) == classRateLimit
}

// ResetTime extracts the quota reset time from a rate-limit error, if the
// error carries one.
func ResetTime(err error) (time.Time, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.Rate.Reset.Time, true
	}
	var ownRateErr *RateLimitError
	if errors.As(err, &ownRateErr) {
		return ownRateErr.ResetAt, true
	}
	return time.Time{}, false
}
