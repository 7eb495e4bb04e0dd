package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Failure kinds returned by Client.Translate. RateLimited and
// TransientNetwork are retried; the others are returned immediately.
var (
	// ErrRateLimited is returned when the service answers 429.
	ErrRateLimited = errors.New("rate limited")
	// ErrTransientNetwork covers connection resets, timeouts and truncated
	// responses.
	ErrTransientNetwork = errors.New("transient network error")
	// ErrEmptyResult is returned when a successful response carries no
	// translation.
	ErrEmptyResult = errors.New("empty translation result")
)

// RemoteError is a non-success response other than 429.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, truncate(e.Body, 500))
}

// RetryError is returned once the retry budget is spent. It unwraps to the
// last failure, so errors.Is(err, ErrRateLimited) still holds.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// retryable reports whether err may succeed on a later attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}

// classifyTransport maps an error from http.Client.Do onto the failure
// kinds. Context cancellation is passed through untouched; anything not
// recognised as transient (DNS failure, refused connection, bad URL) is
// returned as is and is not retried.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// http.Client.Timeout surfaces as DeadlineExceeded too, but also
		// as a net.Error timeout, checked below.
		var ne net.Error
		if !errors.As(err, &ne) || !ne.Timeout() {
			return err
		}
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", ErrTransientNetwork, err)
	}
	return fmt.Errorf("sending request: %w", err)
}

func isTransient(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// Kind names the failure kind of err for user-facing messages.
func Kind(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate limited"
	case errors.Is(err, ErrTransientNetwork):
		return "network error"
	case errors.As(err, &remote):
		return fmt.Sprintf("remote error (HTTP %d)", remote.StatusCode)
	case errors.Is(err, ErrEmptyResult):
		return "empty result"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "request failed"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
