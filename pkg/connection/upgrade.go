package connection

import (
	"context"
	"net"
	"net/http"

	"github.com/cppalliance/gorequests/pkg/cookiejar"
	"github.com/cppalliance/gorequests/pkg/errors"
	"github.com/cppalliance/gorequests/pkg/header"
	"github.com/cppalliance/gorequests/pkg/source"
)

// Websocket is the object returned by Upgrade: it owns the raw transport
// outright once the HTTP handshake completes, so the pool must never reclaim
// it. Framing the WebSocket protocol itself is out of scope for this
// library (spec.md §1); callers read/write the upgraded transport directly.
type Websocket struct {
	Conn       net.Conn
	StatusCode int
	Headers    http.Header
}

func (w *Websocket) Read(p []byte) (int, error)  { return w.Conn.Read(p) }
func (w *Websocket) Write(p []byte) (int, error) { return w.Conn.Write(p) }
func (w *Websocket) Close() error                { return w.Conn.Close() }

// Upgrade performs the same request as Ropen, but on a successful response
// ownership of the transport transfers to the returned Websocket instead of
// being returned to the connection's pool.
func (c *Connection) Upgrade(ctx context.Context, path string, headers http.Header, jar *cookiejar.Jar, isTLS bool) (*Websocket, error) {
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Set("Connection", "Upgrade")
	headers.Set("Upgrade", "websocket")

	if err := c.exchange.Lock(ctx); err != nil {
		return nil, err
	}
	defer c.exchange.Unlock()

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
	if jar != nil {
		if cookies := jar.Get(host, path, schemeFor(isTLS)); len(cookies) > 0 {
			reqHeaders.Set("Cookie", header.FormatCookieHeader(cookies))
		}
	}

	if err := c.writeRequest(conn, http.MethodGet, path, reqHeaders, source.Empty{}); err != nil {
		c.Close()
		return nil, err
	}

	statusCode, _, _, respHeaders, err := readResponseHead(rdr)
	if err != nil {
		c.Close()
		return nil, err
	}
	if statusCode != http.StatusSwitchingProtocols {
		c.Close()
		return nil, errors.NewHTTPParseError("upgrade", nil)
	}

	// The transport now belongs solely to the Websocket; mark the
	// Connection as closed from the pool's point of view without tearing
	// down the underlying socket.
	c.mu.Lock()
	c.closed = true
	transferred := c.conn
	c.conn = nil
	c.reader = nil
	c.mu.Unlock()

	return &Websocket{Conn: transferred, StatusCode: statusCode, Headers: respHeaders}, nil
}
