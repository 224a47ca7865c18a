// Package errors provides the structured error taxonomy used across gorequests.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Kind categorizes an Error the way the wire and pool layers need to dispatch on it.
type Kind string

const (
	KindTransport       Kind = "transport_error"
	KindTLS             Kind = "tls_error"
	KindHTTPParse       Kind = "http_parse_error"
	KindHTTPStatus      Kind = "http_status"
	KindTooManyRedirect Kind = "too_many_redirects"
	KindForbiddenRedir  Kind = "forbidden_redirect"
	KindInvalidRedirect Kind = "invalid_redirect"
	KindInsecure        Kind = "insecure"
	KindWrongHost       Kind = "wrong_host"
	KindAborted         Kind = "operation_aborted"
	KindNeedBuffer      Kind = "need_buffer"
	KindEOF             Kind = "eof"
	KindNotConnected    Kind = "not_connected"
	KindValidation      Kind = "validation"
)

// Error is a structured error with context, in the vein of the teacher library's
// pkg/errors.Error: a Kind for dispatch, an Op describing what failed, a wrapped
// cause, and whatever addressing context is available.
type Error struct {
	Kind      Kind
	Op        string
	Message   string
	Cause     error
	Host      string
	Port      int
	URL       string
	Timestamp time.Time
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.URL != "" {
		parts = append(parts, e.URL)
	} else if e.Host != "" {
		if e.Port > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e.Host, e.Port))
		} else {
			parts = append(parts, e.Host)
		}
	}
	s := strings.Join(parts, " ")
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match against a sentinel &Error{Kind: K} without caring about
// the rest of the fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause, Timestamp: time.Now()}
}

func NewTransportError(host string, port int, op string, cause error) *Error {
	e := newErr(KindTransport, op, fmt.Sprintf("transport failure for %s:%d", host, port), cause)
	e.Host, e.Port = host, port
	return e
}

func NewTLSError(host string, port int, cause error) *Error {
	e := newErr(KindTLS, "handshake", fmt.Sprintf("TLS handshake/verification failed for %s:%d", host, port), cause)
	e.Host, e.Port = host, port
	return e
}

func NewHTTPParseError(op string, cause error) *Error {
	return newErr(KindHTTPParse, op, "malformed HTTP response", cause)
}

// NewHTTPStatusError builds an http_status error. Nothing in this module
// returns one on its own: a status >= 400 is delivered as a normal response.
func NewHTTPStatusError(statusCode int, statusLine string) *Error {
	return newErr(KindHTTPStatus, "status", statusLine, nil)
}

func NewTooManyRedirectsError(max int) *Error {
	return newErr(KindTooManyRedirect, "redirect", fmt.Sprintf("exceeded max_redirects=%d", max), nil)
}

func NewForbiddenRedirectError(mode, from, to string) *Error {
	e := newErr(KindForbiddenRedir, "redirect", fmt.Sprintf("redirect_mode=%s forbids %s -> %s", mode, from, to), nil)
	e.URL = to
	return e
}

func NewInvalidRedirectError(reason string) *Error {
	return newErr(KindInvalidRedirect, "redirect", reason, nil)
}

func NewInsecureError(url string) *Error {
	e := newErr(KindInsecure, "redirect", "enforce_tls forbids non-TLS scheme", nil)
	e.URL = url
	return e
}

func NewWrongHostError(bound, requested string) *Error {
	return newErr(KindWrongHost, "ropen", fmt.Sprintf("connection bound to %q, request targets %q", bound, requested), nil)
}

func NewAbortedError(op string) *Error {
	return newErr(KindAborted, op, "operation aborted", context.Canceled)
}

func NewNeedBufferError() *Error {
	return newErr(KindNeedBuffer, "read", "destination buffer cannot grow", nil)
}

func NewEOFError() *Error {
	return newErr(KindEOF, "read", "body already consumed", nil)
}

func NewNotConnectedError() *Error {
	return newErr(KindNotConnected, "read", "stream has no parser bound", nil)
}

func NewValidationError(msg string) *Error {
	return newErr(KindValidation, "validate", msg, nil)
}

// IsTimeout reports whether err is a timeout at any layer: a net.Error timeout, a
// context deadline, or a structured transport error wrapping one of those.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsAborted reports whether err originates from cancellation.
func IsAborted(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindAborted {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// KindOf extracts the structured Kind, if any.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
