// Package buffer provides memory-bounded storage for response and history bodies,
// spilling to a temp file once a configured limit is exceeded. Adapted from the
// teacher library's pkg/buffer.
package buffer

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// DefaultMemoryLimit is used when a non-positive limit is requested.
const DefaultMemoryLimit = 4 * 1024 * 1024

// Buffer stores bytes in memory up to a limit, then spills to a temp file.
type Buffer struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	file   *os.File
	path   string
	size   int64
	limit  int64
	closed bool
}

func New(limit int64) *Buffer {
	if limit <= 0 {
		limit = DefaultMemoryLimit
	}
	return &Buffer{limit: limit}
}

// NewWithData seeds a buffer with data already in hand (used when a source's
// content is fully materialized, e.g. an HTTP/response conversion).
func NewWithData(data []byte) *Buffer {
	b := &Buffer{limit: DefaultMemoryLimit, size: int64(len(data))}
	b.buf.Write(data)
	return b
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errors.NewValidationError("buffer is closed")
	}

	b.size += int64(len(p))

	if b.file == nil && int64(b.buf.Len()+len(p)) <= b.limit {
		return b.buf.Write(p)
	}

	if b.file == nil {
		tmp, err := os.CreateTemp("", "gorequests-buffer-*.tmp")
		if err != nil {
			return 0, errors.NewTransportError("", 0, "spill", err)
		}
		b.file = tmp
		b.path = tmp.Name()
		if b.buf.Len() > 0 {
			if _, err := tmp.Write(b.buf.Bytes()); err != nil {
				b.closeLocked()
				return 0, errors.NewTransportError("", 0, "spill", err)
			}
		}
		b.buf.Reset()
	}

	n, err := b.file.Write(p)
	if err != nil {
		return n, errors.NewTransportError("", 0, "spill", err)
	}
	return n, nil
}

// Bytes returns the in-memory payload; nil once the buffer has spilled.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return nil
	}
	return b.buf.Bytes()
}

func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *Buffer) IsSpilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file != nil
}

// Reader returns a fresh reader over the stored payload.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.NewValidationError("buffer is closed")
	}
	if b.file != nil {
		if err := b.file.Sync(); err != nil {
			return nil, errors.NewTransportError("", 0, "spill", err)
		}
		f, err := os.Open(b.path)
		if err != nil {
			return nil, errors.NewTransportError("", 0, "spill", err)
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(b.buf.Bytes())), nil
}

func (b *Buffer) closeLocked() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.file != nil {
		err := b.file.Close()
		if rmErr := os.Remove(b.path); rmErr != nil && err == nil {
			err = rmErr
		}
		b.file = nil
		b.path = ""
		return err
	}
	return nil
}

// Close releases the backing temp file, if any. Idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}
