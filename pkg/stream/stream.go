// Package stream implements the incremental response body reader described in
// spec.md §4.2: the handle a caller uses to pull body bytes, and the owner of
// the connection lease for as long as that body is unread. Grounded on the
// teacher library's buffered-response style (pkg/client/client.go's Response)
// combined with the C++ original's incremental stream (see
// _examples/original_source/src/stream.cpp and include/boost/requests/stream.hpp),
// which reads one chunk per call instead of the teacher's eager whole-body read.
package stream

import (
	"net/http"
	"sync"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// BodyReader is the body-framing strategy bound to a parsed response: fixed
// Content-Length, chunked transfer, or read-until-close. One ReadSome call
// returns at most one slice of body bytes.
type BodyReader interface {
	// ReadSome copies available body bytes into p. more reports whether
	// additional body bytes remain to be read after this call.
	ReadSome(p []byte) (n int, more bool, err error)
}

// Releaser is notified exactly once, when a Stream's body has been fully
// consumed or explicitly closed, so the connection's per-exchange mutex (and,
// through the pool, its idle slot) can be released. keepAlive reflects the
// decision made at response-header time from the Connection/Keep-Alive
// headers; the connection itself decides whether to close before returning.
type Releaser interface {
	Release(keepAlive bool)
}

// Response is a completed exchange retained in a Stream's redirect history:
// headers, the fully buffered body, and that response's own nested history.
type Response struct {
	StatusCode int
	StatusLine string
	Headers    http.Header
	Body       []byte
	History    []Response
}

// state is the state machine from spec.md §4.2:
//
//	Start → HeaderRead → BodyStreaming → BodyDone(keep_alive?) → Returned | Closed
//	                                  ↘ Error → Closed
type state int

const (
	stateHeaderRead state = iota
	stateBodyStreaming
	stateBodyDone
	stateClosed
)

// Stream is a single-use, non-cloneable response body reader.
type Stream struct {
	mu sync.Mutex

	statusCode int
	statusLine string
	headers    http.Header
	history    []Response

	body      BodyReader
	noBody    bool
	keepAlive bool
	release   Releaser

	st       state
	released bool
}

// New constructs a Stream bound to a freshly parsed response header. noBody
// is set for responses that never carry a body (HEAD, 1xx, 204, 304): such a
// stream starts already done, per spec.md §4.1 step 8.
func New(statusCode int, statusLine string, headers http.Header, body BodyReader, noBody, keepAlive bool, release Releaser) *Stream {
	s := &Stream{
		statusCode: statusCode,
		statusLine: statusLine,
		headers:    headers,
		body:       body,
		noBody:     noBody,
		keepAlive:  keepAlive,
		release:    release,
		st:         stateHeaderRead,
	}
	if noBody {
		s.st = stateBodyDone
		s.finish()
	}
	return s
}

func (s *Stream) StatusCode() int      { return s.statusCode }
func (s *Stream) StatusLine() string   { return s.statusLine }
func (s *Stream) Headers() http.Header { return s.headers }
func (s *Stream) History() []Response  { return s.history }

// PrependHistory inserts earlier hops ahead of whatever history this stream
// already carries, matching the redirect loop's stream.prepend_history(history).
func (s *Stream) PrependHistory(h []Response) {
	if len(h) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(append([]Response{}, h...), s.history...)
}

// ReadSome reads up to len(p) bytes of body. On need_more from the framer it
// returns (0, nil) and the caller is expected to retry; on EOF the connection
// lease is released (kept alive or closed per the response's Keep-Alive
// record) and a subsequent call returns eof.
func (s *Stream) ReadSome(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.st {
	case stateClosed, stateBodyDone:
		return 0, errors.NewEOFError()
	}
	if s.body == nil {
		return 0, errors.NewNotConnectedError()
	}
	s.st = stateBodyStreaming

	n, more, err := s.body.ReadSome(p)
	if err != nil {
		s.st = stateClosed
		s.finishLocked()
		return n, err
	}
	if !more {
		s.st = stateBodyDone
		s.finishLocked()
	}
	return n, nil
}

// ReadAll repeatedly calls ReadSome until the body is exhausted, growing an
// internal buffer. maxBytes, if positive, bounds how large that buffer may
// grow; exceeding it surfaces need_buffer rather than growing unbounded.
func (s *Stream) ReadAll(maxBytes int64) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := s.ReadSome(buf)
		if n > 0 {
			if maxBytes > 0 && int64(len(out)+n) > maxBytes {
				return out, errors.NewNeedBufferError()
			}
			out = append(out, buf[:n]...)
		}
		if errors.KindOf(err) == errors.KindEOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// Dump reads and discards the remaining body, used when a Stream is
// abandoned with data still unread (the destructor-drain invariant from
// spec.md §4.2).
func (s *Stream) Dump() error {
	buf := make([]byte, 32*1024)
	for {
		_, err := s.ReadSome(buf)
		if errors.KindOf(err) == errors.KindEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close drains any unread body and releases the connection lease. Safe to
// call more than once.
func (s *Stream) Close() error {
	return s.Dump()
}

// finish transitions out of BodyDone into Returned/Closed by notifying the
// release hook. New calls it without taking the mutex, since a fresh Stream
// has no concurrent access yet.
func (s *Stream) finish() {
	s.finishLocked()
}

func (s *Stream) finishLocked() {
	if s.released || s.release == nil {
		s.released = true
		return
	}
	s.released = true
	s.release.Release(s.keepAlive)
}
