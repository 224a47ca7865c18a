// Package connection implements spec.md §4.1: one transport to one endpoint,
// driving a single HTTP/1.1 exchange at a time. Grounded on the teacher
// library's pkg/client/client.go (request/response wire framing) and
// pkg/transport/transport.go (dial/TLS-upgrade sequencing), adapted from
// "buffer the whole response" to "hand back a stream.Stream that reads the
// body incrementally", per the C++ original's stream.cpp.
package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cppalliance/gorequests/pkg/asyncutil"
	"github.com/cppalliance/gorequests/pkg/cookiejar"
	"github.com/cppalliance/gorequests/pkg/endpoint"
	"github.com/cppalliance/gorequests/pkg/errors"
	"github.com/cppalliance/gorequests/pkg/header"
	"github.com/cppalliance/gorequests/pkg/source"
	"github.com/cppalliance/gorequests/pkg/stream"
	"github.com/cppalliance/gorequests/pkg/timing"
)

const maxHeaderBytes = 1 << 20

// KeepAliveRecord is the {absolute timeout, remaining-request count} pair
// from the GLOSSARY, derived from the Connection/Keep-Alive headers of the
// most recent response.
type KeepAliveRecord struct {
	Timeout         time.Time
	HasTimeout      bool
	RemainingRequests int
	HasMax          bool
}

// Alive reports whether another request may be pipelined onto this
// connection under the last-seen keep-alive record.
func (k KeepAliveRecord) Alive(now time.Time) bool {
	if k.HasTimeout && now.After(k.Timeout) {
		return false
	}
	if k.HasMax && k.RemainingRequests <= 0 {
		return false
	}
	return true
}

// Config bundles the dial/TLS knobs a Connection needs at Connect time.
type Config struct {
	TLSConfig   *tls.Config
	DialTimeout time.Duration
	UserAgent   string
}

// Connection owns exactly one transport to one endpoint. It is shared by a
// pool and by whatever Stream currently leases it; its life is the longest
// holder's life, per spec.md §3.
type Connection struct {
	mu sync.Mutex // guards the fields below, not the per-exchange lock

	cfg       Config
	ep        endpoint.Endpoint
	host      string
	conn      net.Conn
	reader    *bufio.Reader
	closed    bool
	keepAlive KeepAliveRecord

	exchange *asyncutil.Mutex // serializes ropen to one in-flight request; see §5
}

// New returns an idle Connection, not yet dialed.
func New(cfg Config) *Connection {
	return &Connection{cfg: cfg, exchange: asyncutil.NewMutex()}
}

// SetHost binds the hostname used for SNI/verification and Host-header
// synthesis. Empty names are rejected.
func (c *Connection) SetHost(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationError("host must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = name
	return nil
}

func (c *Connection) Host() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host
}

// Connect opens the transport, performing a TLS handshake and host-name
// verification when ep.TLS is set. Connecting while already open closes the
// existing transport first, per spec.md §4.1.
func (c *Connection) Connect(ctx context.Context, ep endpoint.Endpoint, timer *timing.Timer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.closeLocked()
	}

	dialTimeout := c.cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if timer != nil {
		timer.StartTCP()
	}
	var d net.Dialer
	raw, err := d.DialContext(dialCtx, ep.DialNetwork(), ep.DialAddr())
	if timer != nil {
		timer.EndTCP()
	}
	if err != nil {
		return errors.NewTransportError(c.host, ep.Port, "connect", err)
	}

	conn := raw
	if ep.TLS {
		if timer != nil {
			timer.StartTLS()
		}
		tlsConn, err := c.upgradeTLS(dialCtx, raw)
		if timer != nil {
			timer.EndTLS()
		}
		if err != nil {
			raw.Close()
			return errors.NewTLSError(c.host, ep.Port, err)
		}
		conn = tlsConn
	}

	c.ep = ep
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.closed = false
	c.keepAlive = KeepAliveRecord{}
	return nil
}

func (c *Connection) upgradeTLS(ctx context.Context, raw net.Conn) (*tls.Conn, error) {
	cfg := c.cfg.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.host
	}
	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// Close performs a graceful TLS shutdown (ignored for plaintext transports),
// then closes the transport. Idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Connection) closeLocked() error {
	if c.closed || c.conn == nil {
		c.closed = true
		return nil
	}
	if tlsConn, ok := c.conn.(*tls.Conn); ok {
		_ = tlsConn.CloseWrite()
	}
	err := c.conn.Close()
	c.closed = true
	c.conn = nil
	c.reader = nil
	if err != nil {
		return errors.NewTransportError(c.host, c.ep.Port, "close", err)
	}
	return nil
}

// IsClosed reports whether the transport has been torn down.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// connReleaser implements stream.Releaser: it unlocks the connection's
// per-exchange mutex and, if the exchange decided against keep-alive, closes
// the transport. A pool layers its own Releaser around onDone for idle-slot
// bookkeeping; see pkg/pool.
type connReleaser struct {
	c      *Connection
	onDone func(keepAlive bool)
}

func (r *connReleaser) Release(keepAlive bool) {
	if !keepAlive {
		r.c.Close()
	}
	r.c.exchange.Unlock()
	if r.onDone != nil {
		r.onDone(keepAlive)
	}
}

// Ropen performs one HTTP/1.1 exchange and returns a Stream bound to this
// connection. It is not a redirect loop. onDone, if non-nil, is invoked once
// the returned stream's body is fully consumed or closed, after this
// connection's own per-exchange lock has already been released — the pool
// uses it to return the connection to its idle set or drop it.
func (c *Connection) Ropen(ctx context.Context, method, path string, headers http.Header, src source.Source, jar *cookiejar.Jar, isTLS bool, onDone func(keepAlive bool)) (*stream.Stream, error) {
	if err := c.exchange.Lock(ctx); err != nil {
		return nil, err
	}

	releaser := &connReleaser{c: c, onDone: onDone}

	st, err := c.doExchange(ctx, method, path, headers, src, jar, isTLS, releaser)
	if err != nil {
		// The exchange failed before (or while) producing a stream: no
		// Releaser has taken ownership of the lock yet, so this path must
		// release it itself. Failure before the header is delivered closes
		// the connection per spec.md §4.1's failure semantics.
		c.Close()
		c.exchange.Unlock()
		if onDone != nil {
			onDone(false)
		}
		return nil, err
	}
	return st, nil
}

func (c *Connection) doExchange(ctx context.Context, method, path string, headers http.Header, src source.Source, jar *cookiejar.Jar, isTLS bool, releaser *connReleaser) (*stream.Stream, error) {
	c.mu.Lock()
	conn, rdr, host := c.conn, c.reader, c.host
	c.mu.Unlock()
	if conn == nil {
		return nil, errors.NewNotConnectedError()
	}

	reqHeaders := cloneHeader(headers)
	if reqHeaders.Get("Host") == "" {
		reqHeaders.Set("Host", host)
	}
	if reqHeaders.Get("User-Agent") == "" {
		ua := c.cfg.UserAgent
		if ua == "" {
			ua = "gorequests/1.0"
		}
		reqHeaders.Set("User-Agent", ua)
	}
	if jar != nil {
		if cookies := jar.Get(host, path, schemeFor(isTLS)); len(cookies) > 0 {
			reqHeaders.Set("Cookie", header.FormatCookieHeader(cookies))
		}
	}

	if err := c.writeRequest(conn, method, path, reqHeaders, src); err != nil {
		return nil, err
	}

	statusCode, statusLine, httpVersion, respHeaders, err := readResponseHead(rdr)
	if err != nil {
		return nil, err
	}

	if jar != nil {
		for _, raw := range respHeaders.Values("Set-Cookie") {
			if sc, ok := header.ParseSetCookie(raw); ok {
				jar.Set(sc, host, path, false)
			}
		}
	}

	keepAlive := c.applyKeepAlive(httpVersion, respHeaders)
	hasNoBody := method == http.MethodHead ||
		(statusCode >= 100 && statusCode < 200) ||
		statusCode == http.StatusNoContent ||
		statusCode == http.StatusNotModified

	// RFC 9110 §6.4.1 says these responses carry no body, but a
	// non-compliant server may send one anyway. If bytes are already
	// buffered, capture them rather than hang the next read on a
	// keep-alive connection; otherwise skip reading entirely to avoid
	// blocking on a body that was never sent.
	if hasNoBody && rdr.Buffered() == 0 {
		return stream.New(statusCode, statusLine, respHeaders, emptyBody{}, true, keepAlive, releaser), nil
	}

	body, err := selectBodyReader(rdr, respHeaders)
	if err != nil {
		return nil, err
	}
	return stream.New(statusCode, statusLine, respHeaders, body, false, keepAlive, releaser), nil
}

// applyKeepAlive folds the Connection and Keep-Alive response headers into
// this connection's keep-alive record and returns whether the exchange just
// completed should keep the transport open.
func (c *Connection) applyKeepAlive(httpVersion string, h http.Header) bool {
	connToken := strings.ToLower(strings.TrimSpace(h.Get("Connection")))
	defaultAlive := httpVersion != "HTTP/1.0"
	keepAlive := defaultAlive
	if connToken == "close" {
		keepAlive = false
	} else if connToken == "keep-alive" {
		keepAlive = true
	}

	rec := KeepAliveRecord{}
	if ka := h.Get("Keep-Alive"); ka != "" {
		parsed := header.ParseKeepAlive(ka)
		if parsed.Timeout > 0 {
			rec.Timeout = time.Now().Add(parsed.Timeout)
			rec.HasTimeout = true
		}
		if parsed.HasMax {
			rec.RemainingRequests = parsed.Max
			rec.HasMax = true
		}
	}
	if !keepAlive {
		rec.HasMax = true
		rec.RemainingRequests = 0
	} else if rec.HasMax && rec.RemainingRequests <= 0 {
		keepAlive = false
	}

	c.mu.Lock()
	c.keepAlive = rec
	c.mu.Unlock()
	return keepAlive
}

func schemeFor(isTLS bool) string {
	if isTLS {
		return "https"
	}
	return "http"
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = append([]string{}, v...)
	}
	return out
}

// writeRequest synthesizes framing (Content-Length vs chunked) per spec.md
// §4.1 step 3: if the source's size is known, use it; otherwise prefetch one
// chunk to decide between a single fixed write and chunked encoding.
func (c *Connection) writeRequest(w io.Writer, method, path string, h http.Header, src source.Source) error {
	bw := bufio.NewWriter(w)

	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", src.ContentType())
	}

	if size, ok := src.Size(); ok {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, path); err != nil {
			return errors.NewTransportError(c.host, c.ep.Port, "write", err)
		}
		writeHeaders(bw, h)
		if err := pumpSource(bw, src); err != nil {
			return err
		}
		return flushOrTransportError(bw, c)
	}

	// Unknown size: prefetch one chunk to see whether a single write
	// suffices (then it's really a known Content-Length) or we must switch
	// to chunked transfer encoding.
	prefetch := make([]byte, 64*1024)
	n, err := src.ReadSome(prefetch)
	if err != nil && err != io.EOF {
		return errors.NewValidationError("reading request body source: " + err.Error())
	}
	prefetch = prefetch[:n]
	final := err == io.EOF

	if final {
		h.Set("Content-Length", strconv.Itoa(len(prefetch)))
		if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, path); err != nil {
			return errors.NewTransportError(c.host, c.ep.Port, "write", err)
		}
		writeHeaders(bw, h)
		if len(prefetch) > 0 {
			if _, err := bw.Write(prefetch); err != nil {
				return errors.NewTransportError(c.host, c.ep.Port, "write", err)
			}
		}
		return flushOrTransportError(bw, c)
	}

	h.Del("Content-Length")
	h.Set("Transfer-Encoding", "chunked")
	if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, path); err != nil {
		return errors.NewTransportError(c.host, c.ep.Port, "write", err)
	}
	writeHeaders(bw, h)
	if err := writeChunk(bw, prefetch); err != nil {
		return err
	}
	if err := pumpChunkedSource(bw, src); err != nil {
		return err
	}
	return flushOrTransportError(bw, c)
}

func writeHeaders(bw *bufio.Writer, h http.Header) {
	for k, vs := range h {
		for _, v := range vs {
			fmt.Fprintf(bw, "%s: %s\r\n", k, v)
		}
	}
	bw.WriteString("\r\n")
}

func pumpSource(bw *bufio.Writer, src source.Source) error {
	buf := make([]byte, 64*1024)
	for {
		n, err := src.ReadSome(buf)
		if n > 0 {
			if _, werr := bw.Write(buf[:n]); werr != nil {
				return errors.NewTransportError("", 0, "write", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewValidationError("reading request body source: " + err.Error())
		}
	}
}

func pumpChunkedSource(bw *bufio.Writer, src source.Source) error {
	buf := make([]byte, 64*1024)
	for {
		n, err := src.ReadSome(buf)
		if n > 0 {
			if werr := writeChunk(bw, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			_, werr := bw.WriteString("0\r\n\r\n")
			if werr != nil {
				return errors.NewTransportError("", 0, "write", werr)
			}
			return nil
		}
		if err != nil {
			return errors.NewValidationError("reading request body source: " + err.Error())
		}
	}
}

func writeChunk(bw *bufio.Writer, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(bw, "%x\r\n", len(p)); err != nil {
		return errors.NewTransportError("", 0, "write", err)
	}
	if _, err := bw.Write(p); err != nil {
		return errors.NewTransportError("", 0, "write", err)
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return errors.NewTransportError("", 0, "write", err)
	}
	return nil
}

func flushOrTransportError(bw *bufio.Writer, c *Connection) error {
	if err := bw.Flush(); err != nil {
		return errors.NewTransportError(c.host, c.ep.Port, "write", err)
	}
	return nil
}

// selectBodyReader dispatches on Transfer-Encoding/Content-Length/close-
// framing, mirroring the teacher's readBody switch but returning an
// incremental stream.BodyReader instead of eagerly consuming the body.
func selectBodyReader(r *bufio.Reader, h http.Header) (stream.BodyReader, error) {
	if strings.Contains(strings.ToLower(h.Get("Transfer-Encoding")), "chunked") {
		trailers := map[string][]string(h)
		return newChunkedBody(r, &trailers), nil
	}
	if cl := h.Get("Content-Length"); cl != "" {
		length, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || length < 0 {
			return nil, errors.NewHTTPParseError("invalid content-length", nil)
		}
		return newFixedBody(r, length), nil
	}
	return newUntilCloseBody(r), nil
}
