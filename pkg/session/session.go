// Package session implements spec.md §4.5: the top-level request entry
// point, URL-to-pool routing, and the redirect loop. Grounded on the C++
// original's boost::requests::session/connection_pool pairing (see
// _examples/original_source/src/redirect.cpp and
// include/boost/requests/session.hpp) for the redirect semantics, and on the
// teacher library's pkg/client.Client for the request-construction style.
package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/idna"

	"github.com/cppalliance/gorequests/pkg/cookiejar"
	"github.com/cppalliance/gorequests/pkg/errors"
	"github.com/cppalliance/gorequests/pkg/pool"
	"github.com/cppalliance/gorequests/pkg/publicsuffix"
)

// RedirectMode selects which redirect targets a session will follow,
// spec.md §4.5's scope policy table.
type RedirectMode int

const (
	RedirectNone RedirectMode = iota
	RedirectEndpoint
	RedirectDomain
	RedirectSubdomain
	RedirectPrivateDomain
	RedirectAny
)

// RequestOptions is the per-session policy bundle from spec.md §6.
type RequestOptions struct {
	EnforceTLS   bool
	RedirectMode RedirectMode
	MaxRedirects int
}

// DefaultRequestOptions matches spec.md §6's defaults.
func DefaultRequestOptions() RequestOptions {
	return RequestOptions{EnforceTLS: true, RedirectMode: RedirectPrivateDomain, MaxRedirects: 12}
}

// Config bundles what a Session needs at construction: policy defaults, TLS
// material, the public suffix list driving private_domain/cookie scoping,
// and per-pool tuning.
type Config struct {
	Options       RequestOptions
	TLSConfig     *tls.Config
	PublicSuffix  *publicsuffix.List
	PoolConfig    pool.Config
	UserAgent     string
}

// origin is the pool-routing key from spec.md §4.5: scheme+host+port, with a
// missing scheme defaulted to https and default ports elided.
type origin struct {
	scheme string
	host   string
	port   int
}

func (o origin) key() string { return fmt.Sprintf("%s://%s:%d", o.scheme, o.host, o.port) }

func normalizeOrigin(u *url.URL) (origin, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return origin{}, errors.NewValidationError("url missing host: " + u.String())
	}
	// Normalize to ASCII/punycode so a redirect between a Unicode and an
	// already-punycode form of the same host keys to the same pool and
	// compares equal under shouldRedirect.
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	port := effectivePort(scheme, u.Port())
	return origin{scheme: scheme, host: host, port: port}, nil
}

func effectivePort(scheme, explicit string) int {
	if explicit != "" {
		if n, err := strconv.Atoi(explicit); err == nil {
			return n
		}
	}
	switch scheme {
	case "https", "wss":
		return 443
	default:
		return 80
	}
}

func isTLSScheme(scheme string) bool {
	return scheme == "https" || scheme == "wss"
}

// Session holds shared state across requests: per-origin pools, a cookie
// jar, request policy, and TLS material, per spec.md §3.
type Session struct {
	cfg Config

	mu    sync.Mutex
	pools map[string]*pool.Pool

	jar *cookiejar.Jar
}

// New constructs a Session. A nil PublicSuffix in cfg falls back to the
// embedded default list, shared by both the cookie jar and private_domain
// redirect scoping.
func New(cfg Config) *Session {
	if cfg.PublicSuffix == nil {
		cfg.PublicSuffix = publicsuffix.Default()
	}
	if cfg.Options == (RequestOptions{}) {
		cfg.Options = DefaultRequestOptions()
	}
	return &Session{
		cfg:   cfg,
		pools: make(map[string]*pool.Pool),
		jar:   cookiejar.New(cfg.PublicSuffix),
	}
}

// Jar returns the session's cookie jar.
func (s *Session) Jar() *cookiejar.Jar { return s.jar }

// RequestOptions returns the session's current request policy.
func (s *Session) RequestOptions() RequestOptions { return s.cfg.Options }

func (s *Session) getPool(ctx context.Context, o origin) (*pool.Pool, error) {
	s.mu.Lock()
	p, ok := s.pools[o.key()]
	if !ok {
		p = pool.New(o.host, s.poolConfigFor())
		s.pools[o.key()] = p
	}
	s.mu.Unlock()

	if err := p.Lookup(ctx, o.port, isTLSScheme(o.scheme)); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Session) poolConfigFor() pool.Config {
	cfg := s.cfg.PoolConfig
	if cfg.Limit <= 0 {
		cfg = pool.DefaultConfig()
	}
	cfg.ConnConfig.TLSConfig = s.cfg.TLSConfig
	if cfg.ConnConfig.UserAgent == "" {
		cfg.ConnConfig.UserAgent = s.cfg.UserAgent
	}
	return cfg
}

// Close tears down every pool this session has opened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pools {
		p.Close()
	}
	return nil
}

var (
	defaultSession     *Session
	defaultSessionOnce sync.Once
)

// Default returns the process-wide lazily initialized session, guarded by a
// one-shot initializer per spec.md §5.
func Default() *Session {
	defaultSessionOnce.Do(func() {
		defaultSession = New(Config{Options: DefaultRequestOptions()})
	})
	return defaultSession
}

// BasicAuth formats an Authorization header value for HTTP basic auth.
func BasicAuth(user, pass string) string {
	req := &http.Request{Header: make(http.Header)}
	req.SetBasicAuth(user, pass)
	return req.Header.Get("Authorization")
}

// Bearer formats an Authorization header value carrying a bearer token.
func Bearer(token string) string {
	return "Bearer " + token
}
