package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted matches (errors.Is) every ExhaustedError.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context ends during a backoff wait.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrOffline matches (errors.Is) every RequestError of kind KindOffline.
	ErrOffline = errors.New("network offline")
)

// ErrorKind classifies a failed request.
type ErrorKind string

const (
	// KindOffline means no request was made because the monitor reported offline.
	KindOffline ErrorKind = "offline"

	// KindNetwork means the request failed without a response.
	KindNetwork ErrorKind = "network"

	// KindTimeout means the request exceeded its own timeout.
	KindTimeout ErrorKind = "timeout"

	// KindHTTPStatus means a response arrived with a non-success status.
	KindHTTPStatus ErrorKind = "http_status"
)

// RequestError is the error returned for a single failed attempt.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int
	Method     string
	URL        string
	Message    string
	Header     http.Header
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error", e.Kind)
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Method, e.URL)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Is matches ErrOffline for offline errors.
func (e *RequestError) Is(target error) bool {
	return target == ErrOffline && e.Kind == KindOffline
}

// HTTPStatus returns the response status, or 0 when no response was received.
func (e *RequestError) HTTPStatus() int {
	return e.StatusCode
}

// ExhaustedError is returned when every allowed attempt failed. It unwraps to
// the last attempt's error, so the kind of that error stays reachable through
// errors.As.
type ExhaustedError struct {
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrRetryExhausted, e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Is matches ErrRetryExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// StatusOf returns the HTTP status carried by err, or 0 if there is none.
func StatusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// KindOf returns the kind of err. Errors that are not RequestErrors are
// classified as transport failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return Classify(err)
}

// Classify maps a transport error (no response received) to KindTimeout or
// KindNetwork. Timeouts are recognised by deadline errors, net.Error.Timeout,
// or a message mentioning "timeout".
func Classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return KindTimeout
	}
	return KindNetwork
}

// DefaultRetryCondition retries failures without a response status (offline,
// network, timeout) and 5xx responses. 4xx responses and cancellations are
// not retried.
func DefaultRetryCondition(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	status := StatusOf(err)
	if status == 0 {
		return true
	}
	return status >= 500 && status < 600
}

func offlineError() *RequestError {
	return &RequestError{Kind: KindOffline, Message: "network offline, request skipped"}
}
