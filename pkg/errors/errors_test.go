package errors

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestKindOfExtractsStructuredKind(t *testing.T) {
	err := NewWrongHostError("example.com", "other.test")
	if KindOf(err) != KindWrongHost {
		t.Fatalf("KindOf() = %v, want %v", KindOf(err), KindWrongHost)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("KindOf() of a non-structured error must be empty")
	}
}

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	err := NewTransportError("example.com", 443, "dial", nil)
	sentinel := &Error{Kind: KindTransport}
	if !errors.Is(err, sentinel) {
		t.Fatal("errors.Is must match structured errors by Kind")
	}
	if errors.Is(err, &Error{Kind: KindTLS}) {
		t.Fatal("errors.Is must not match a different Kind")
	}
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTransportError("example.com", 443, "dial", cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is must see through to the wrapped cause")
	}
}

func TestIsAbortedRecognizesContextCanceled(t *testing.T) {
	if !IsAborted(context.Canceled) {
		t.Fatal("IsAborted must recognize context.Canceled")
	}
	if !IsAborted(NewAbortedError("read")) {
		t.Fatal("IsAborted must recognize a KindAborted Error")
	}
	if IsAborted(errors.New("boom")) {
		t.Fatal("IsAborted must not misfire on an unrelated error")
	}
}

func TestErrorMessageIncludesHostAndCause(t *testing.T) {
	cause := errors.New("no route to host")
	err := NewTransportError("example.com", 443, "dial", cause)
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() must not be empty")
	}
	if !strings.Contains(msg, "example.com:443") {
		t.Fatalf("Error() = %q, want it to include the host and port", msg)
	}
	if !strings.Contains(msg, "no route to host") {
		t.Fatalf("Error() = %q, want it to include the cause", msg)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must still be reachable")
	}
}
