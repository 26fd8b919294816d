package bridge

import (
	"errors"
	"fmt"
)

// ErrInvalidAddress is returned when a path cannot be composed into a request
// target. With the fixed endpoint paths this indicates a programming error.
var ErrInvalidAddress = errors.New("invalid address")

// TransportError wraps a network-level failure: DNS, connect, timeout or
// cancellation. The service is most likely not running.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError reports a non-2xx response. Message carries the service's
// "error" field when it sent one.
type HTTPError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// DecodeError reports a response body that does not match the expected
// shape, usually version skew between client and service.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnreachable reports whether err is a transport-level failure.
func IsUnreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Describe renders err as a short user-facing reason.
func Describe(err error) string {
	var (
		he *HTTPError
		de *DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAddress):
		return "invalid address"
	case IsUnreachable(err):
		return "service unreachable"
	case errors.As(err, &he):
		if he.Message != "" {
			return he.Message
		}
		return fmt.Sprintf("service returned %d", he.Code)
	case errors.As(err, &de):
		return "unexpected response from service"
	default:
		return err.Error()
	}
}
