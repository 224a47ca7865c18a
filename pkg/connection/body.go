package connection

import (
	"bufio"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// These three framers implement stream.BodyReader, each returning at most
// one caller-sized slice of body per ReadSome call so the caller can pull an
// arbitrarily large body without it ever landing in memory all at once. The
// fixed and until-close framers do one read per call; the chunked framer may
// also read a chunk-size line and a chunk's trailing CRLF in the same call.
// Grounded on the teacher library's readFixedBody/readChunkedBody/
// readUntilClose (pkg/client/client.go), rewritten from "read the whole thing
// into a buffer.Buffer" to "read one slice per call".

// fixedBody reads exactly Content-Length bytes, tolerating a server that
// closes early (the teacher's readFixedBody treats io.EOF/io.ErrUnexpectedEOF
// as a truncated-but-accepted body rather than a hard failure).
type fixedBody struct {
	r         *bufio.Reader
	remaining int64
}

func newFixedBody(r *bufio.Reader, length int64) *fixedBody {
	return &fixedBody{r: r, remaining: length}
}

func (b *fixedBody) ReadSome(p []byte) (int, bool, error) {
	if b.remaining <= 0 {
		return 0, false, nil
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			b.remaining = 0
			return n, false, nil
		}
		return n, false, errors.NewHTTPParseError("reading fixed body", err)
	}
	return n, b.remaining > 0, nil
}

// chunkedBody de-frames Transfer-Encoding: chunked, one chunk boundary parsed
// per exhausted chunk, honoring RFC 7230 §4.1. trailers is populated in place
// once the terminating 0-length chunk and trailer section are read.
type chunkedBody struct {
	tp        *textproto.Reader
	remaining int64 // bytes left in the current chunk
	done      bool
	trailers  *map[string][]string
}

func newChunkedBody(r *bufio.Reader, trailers *map[string][]string) *chunkedBody {
	return &chunkedBody{tp: textproto.NewReader(r), trailers: trailers}
}

func (b *chunkedBody) ReadSome(p []byte) (int, bool, error) {
	if b.done {
		return 0, false, nil
	}
	if b.remaining == 0 {
		if err := b.nextChunkHeader(); err != nil {
			return 0, false, err
		}
		if b.remaining == 0 {
			if err := b.readTrailers(); err != nil {
				return 0, false, err
			}
			b.done = true
			return 0, false, nil
		}
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := io.ReadFull(b.tp.R, p)
	b.remaining -= int64(n)
	if err != nil {
		return n, false, errors.NewHTTPParseError("reading chunk body", err)
	}
	if b.remaining == 0 {
		if _, err := io.CopyN(io.Discard, b.tp.R, 2); err != nil {
			return n, false, errors.NewHTTPParseError("reading chunk CRLF", err)
		}
	}
	return n, true, nil
}

func (b *chunkedBody) nextChunkHeader() error {
	line, err := b.tp.ReadLine()
	if err != nil {
		return errors.NewHTTPParseError("reading chunk size", err)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(strings.Split(line, ";")[0]), 16, 64)
	if err != nil {
		return errors.NewHTTPParseError("invalid chunk size", err)
	}
	b.remaining = size
	return nil
}

func (b *chunkedBody) readTrailers() error {
	for {
		line, err := b.tp.ReadLine()
		if err != nil {
			return errors.NewHTTPParseError("reading chunk trailer", err)
		}
		if line == "" {
			return nil
		}
		if b.trailers != nil {
			if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
				key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(parts[0]))
				(*b.trailers)[key] = append((*b.trailers)[key], strings.TrimSpace(parts[1]))
			}
		}
	}
}

// untilCloseBody reads until the transport reports EOF, used when neither
// Content-Length nor chunked framing is present (HTTP/1.0-style responses).
type untilCloseBody struct {
	r    *bufio.Reader
	done bool
}

func newUntilCloseBody(r *bufio.Reader) *untilCloseBody {
	return &untilCloseBody{r: r}
}

func (b *untilCloseBody) ReadSome(p []byte) (int, bool, error) {
	if b.done {
		return 0, false, nil
	}
	n, err := b.r.Read(p)
	if err != nil {
		b.done = true
		if err == io.EOF {
			return n, false, nil
		}
		return n, false, errors.NewHTTPParseError("reading until close", err)
	}
	return n, true, nil
}

// emptyBody signals a response that never carries a body (HEAD, 1xx, 204, 304).
type emptyBody struct{}

func (emptyBody) ReadSome(p []byte) (int, bool, error) { return 0, false, nil }
