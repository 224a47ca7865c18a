// Package gorequests is a raw-socket HTTP/1.1 client library: per-host
// connection pools, chunked/keep-alive framing, cookie handling against the
// public suffix list, and a policy-driven redirect loop. Mirrors the teacher
// library's top-level re-export style (see
// _examples/WhileEndless-go-rawhttp/rawhttp.go), but built around a Session
// rather than a stateless Sender, since this library's pools and cookie jar
// are inherently stateful across requests.
package gorequests

import (
	"context"
	"net/http"

	"github.com/cppalliance/gorequests/pkg/cookiejar"
	"github.com/cppalliance/gorequests/pkg/publicsuffix"
	"github.com/cppalliance/gorequests/pkg/session"
	"github.com/cppalliance/gorequests/pkg/source"
	"github.com/cppalliance/gorequests/pkg/stream"
)

// Re-export the types callers need without reaching into pkg/.
type (
	Session         = session.Session
	Config          = session.Config
	RequestOptions  = session.RequestOptions
	RedirectMode    = session.RedirectMode
	Response        = stream.Response
	Stream          = stream.Stream
	Source          = source.Source
	Jar             = cookiejar.Jar
	PublicSuffixList = publicsuffix.List
)

const (
	RedirectNone          = session.RedirectNone
	RedirectEndpoint      = session.RedirectEndpoint
	RedirectDomain        = session.RedirectDomain
	RedirectSubdomain     = session.RedirectSubdomain
	RedirectPrivateDomain = session.RedirectPrivateDomain
	RedirectAny           = session.RedirectAny
)

// DefaultRequestOptions returns spec-mandated defaults: TLS enforced,
// private_domain redirect scope, 12 max redirects.
func DefaultRequestOptions() RequestOptions { return session.DefaultRequestOptions() }

// NewSession constructs a standalone Session with its own pools and jar.
func NewSession(cfg Config) *Session { return session.New(cfg) }

// Default returns the process-wide lazily initialized Session.
func Default() *Session { return session.Default() }

// BasicAuth formats an Authorization header value for HTTP basic auth.
func BasicAuth(user, pass string) string { return session.BasicAuth(user, pass) }

// Bearer formats an Authorization header value carrying a bearer token.
func Bearer(token string) string { return session.Bearer(token) }

// Get, Head, Delete, Options, Trace, Post, Put, Patch delegate to the
// default session, for callers that don't need their own pools or cookie
// jar.

func Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return Default().Get(ctx, url, headers)
}

func Head(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return Default().Head(ctx, url, headers)
}

func Delete(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return Default().Delete(ctx, url, headers)
}

func Options(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return Default().Options(ctx, url, headers)
}

func Trace(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return Default().Trace(ctx, url, headers)
}

func Post(ctx context.Context, url string, headers http.Header, src Source) (*Response, error) {
	return Default().Post(ctx, url, headers, src)
}

func Put(ctx context.Context, url string, headers http.Header, src Source) (*Response, error) {
	return Default().Put(ctx, url, headers, src)
}

func Patch(ctx context.Context, url string, headers http.Header, src Source) (*Response, error) {
	return Default().Patch(ctx, url, headers, src)
}

// Request is the general entry point: any method, streamed response,
// explicit options override.
func Request(ctx context.Context, method, url string, headers http.Header, src Source, opts *RequestOptions) (*Stream, error) {
	return Default().Request(ctx, method, url, headers, src, opts)
}
