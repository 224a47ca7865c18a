// Package cookiejar implements an RFC 6265 §5.3 cookie store: the storage
// model, domain/path matching rules, and the Set algorithm, ported from the
// C++ original's boost::requests::cookie_jar (see
// _examples/original_source/src/cookie_jar.cpp) including its rejection of
// Domain attributes that name a public suffix.
package cookiejar

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cppalliance/gorequests/pkg/publicsuffix"
)

// Cookie is one stored cookie, RFC 6265 §5.3's "cookie" struct.
type Cookie struct {
	Name           string
	Value          string
	CreationTime   time.Time
	ExpiryTime     time.Time // zero value means "no expiry" (session cookie)
	Domain         string
	Path           string
	Persistent     bool
	HostOnly       bool
	Secure         bool
	HTTPOnly       bool
	LastAccessTime time.Time
}

// SetCookie is the parsed attribute set of a single Set-Cookie header, the
// input to Jar.Set. Expires is zero when absent; MaxAge must be read
// alongside HasMaxAge since an explicit "Max-Age=0" is a real, distinct value
// from the attribute never having been present at all.
type SetCookie struct {
	Name      string
	Value     string
	Domain    string
	Path      string
	MaxAge    time.Duration
	HasMaxAge bool
	Expires   time.Time
	Secure    bool
	HTTPOnly  bool
}

type cookieKey struct {
	name, domain, path string
}

// Jar is a concurrency-safe in-memory cookie store.
type Jar struct {
	mu             sync.Mutex
	content        map[cookieKey]Cookie
	publicSuffixes *publicsuffix.List
}

// New returns an empty Jar. A nil suffix list falls back to the embedded
// default public suffix list.
func New(suffixes *publicsuffix.List) *Jar {
	if suffixes == nil {
		suffixes = publicsuffix.Default()
	}
	return &Jar{content: make(map[cookieKey]Cookie), publicSuffixes: suffixes}
}

// domainMatch reports whether full (the request host) matches pattern (a
// cookie's Domain), RFC 6265 §5.1.3. Both arguments must already be
// lower-case.
func domainMatch(full, pattern string) bool {
	if !strings.HasSuffix(full, pattern) {
		return false
	}
	if len(full) == len(pattern) {
		return true
	}
	return full[len(full)-len(pattern)-1] == '.'
}

// pathMatch reports whether full (the request path) matches pattern (a
// cookie's Path), RFC 6265 §5.1.4.
func pathMatch(full, pattern string) bool {
	if !strings.HasPrefix(full, pattern) {
		return false
	}
	if len(full) == len(pattern) {
		return true
	}
	if strings.HasSuffix(pattern, "/") {
		return true
	}
	return full[len(pattern)] == '/'
}

func defaultPath(requestPath string) string {
	if requestPath == "" || requestPath == "/" {
		return "/"
	}
	i := strings.LastIndexByte(requestPath, '/')
	if i <= 0 {
		return "/"
	}
	return requestPath[:i]
}

// Set stores sc as observed on a response from requestHost/requestPath,
// applying RFC 6265 §5.3's validation and the non-HTTP-API http-only guard.
// It reports whether the cookie was accepted.
func (j *Jar) Set(sc SetCookie, requestHost, requestPath string, fromNonHTTPAPI bool) bool {
	requestHost = strings.ToLower(requestHost)
	now := time.Now()

	c := Cookie{
		Name:           sc.Name,
		Value:          sc.Value,
		CreationTime:   now,
		LastAccessTime: now,
		Secure:         sc.Secure,
		HTTPOnly:       sc.HTTPOnly,
	}

	switch {
	case sc.HasMaxAge:
		// RFC 6265 §5.3: a zero or negative Max-Age is not "no expiry" — it
		// means expire the cookie immediately, distinct from Max-Age being
		// absent altogether (which falls through to the session-cookie case).
		if sc.MaxAge <= 0 {
			c.ExpiryTime = c.CreationTime
		} else {
			c.ExpiryTime = c.CreationTime.Add(sc.MaxAge)
		}
		c.Persistent = true
	case !sc.Expires.IsZero():
		c.ExpiryTime = sc.Expires
		c.Persistent = true
	default:
		c.ExpiryTime = time.Time{}
		c.Persistent = false
	}

	if sc.Domain != "" {
		domain := strings.ToLower(sc.Domain)
		if j.publicSuffixes.IsPublicSuffix(domain) {
			if requestHost != domain {
				return false
			}
		} else if !domainMatch(requestHost, domain) {
			return false
		}
		c.Domain = domain
		c.HostOnly = false
	} else {
		c.Domain = requestHost
		c.HostOnly = true
	}

	if sc.Path != "" {
		c.Path = sc.Path
	} else {
		c.Path = defaultPath(requestPath)
	}

	if fromNonHTTPAPI && c.HTTPOnly {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := cookieKey{name: c.Name, domain: c.Domain, path: c.Path}
	if existing, ok := j.content[key]; ok {
		if existing.HTTPOnly && fromNonHTTPAPI {
			return false
		}
		c.CreationTime = existing.CreationTime
	}

	if !c.ExpiryTime.IsZero() && !c.ExpiryTime.After(now) {
		delete(j.content, key)
		return false
	}

	j.content[key] = c
	return true
}

// Get returns the cookies applicable to a request against host/path over the
// given scheme ("http" or "https"), ordered by RFC 6265 §5.4: longest Path
// first, then oldest CreationTime first.
func (j *Jar) Get(host, path, scheme string) []Cookie {
	host = strings.ToLower(host)
	secure := scheme == "https"
	now := time.Now()

	j.mu.Lock()
	var matched []Cookie
	for key, c := range j.content {
		if !c.ExpiryTime.IsZero() && !c.ExpiryTime.After(now) {
			delete(j.content, key)
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if c.HostOnly {
			if c.Domain != host {
				continue
			}
		} else if !domainMatch(host, c.Domain) {
			continue
		}
		if !pathMatch(path, c.Path) {
			continue
		}
		c.LastAccessTime = now
		j.content[key] = c
		matched = append(matched, c)
	}
	j.mu.Unlock()

	sort.SliceStable(matched, func(i, k int) bool {
		if len(matched[i].Path) != len(matched[k].Path) {
			return len(matched[i].Path) > len(matched[k].Path)
		}
		return matched[i].CreationTime.Before(matched[k].CreationTime)
	})
	return matched
}

// DropExpired removes every cookie whose expiry time has passed.
func (j *Jar) DropExpired() {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	for key, c := range j.content {
		if !c.ExpiryTime.IsZero() && !c.ExpiryTime.After(now) {
			delete(j.content, key)
		}
	}
}

// All returns every cookie currently stored, for inspection/tests.
func (j *Jar) All() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Cookie, 0, len(j.content))
	for _, c := range j.content {
		out = append(out, c)
	}
	return out
}
