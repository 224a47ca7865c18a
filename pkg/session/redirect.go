package session

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/cppalliance/gorequests/pkg/publicsuffix"
)

// asciiHost lowercases and punycode-normalizes a hostname for comparison;
// hosts that fail IDNA normalization are compared as given.
func asciiHost(host string) string {
	host = strings.ToLower(host)
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// getPort mirrors redirect.cpp's get_port(uv): an explicit port wins, else
// ws/http/no-scheme default to 80 and wss/https to 443, else 0 (unknown).
func getPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "http", "":
		return 80
	case "wss", "https":
		return 443
	default:
		return 0
	}
}

// commonSuffixLen returns the number of trailing bytes a and b share,
// capped at min(len(a), len(b)) — the Go equivalent of advancing a pair of
// reverse iterators with std::mismatch until the first difference.
func commonSuffixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// privateDomainAllows ports redirect.cpp's should_redirect private_domain
// branch: find the longest common suffix of the two hostnames, round its
// start on each side out to a label ('.') boundary, and allow the redirect
// unless the resulting shared suffix of target is itself a public suffix
// (i.e. the two hosts don't actually share a registrable domain).
func privateDomainAllows(current, target string, pse *publicsuffix.List) bool {
	i := commonSuffixLen(current, target)
	currentPos := len(current) - i
	targetPos := len(target) - i

	if currentPos == len(current) {
		// No shared trailing byte at all: the hosts share no registrable
		// domain. Only an empty target host (a relative redirect) stays put.
		return target == ""
	}

	if currentPos != 0 && current[currentPos-1] != '.' {
		rest := current[currentPos:]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			currentPos += dot
			targetPos += dot
		} else {
			advance := len(rest)
			currentPos += advance
			targetPos += advance
		}
	}

	if targetPos != 0 && target[targetPos-1] != '.' {
		rest := target[targetPos:]
		if dot := strings.IndexByte(rest, '.'); dot >= 0 {
			targetPos += dot
		} else {
			targetPos = len(target)
		}
	}

	if targetPos < len(target) && target[targetPos] == '.' {
		targetPos++
	}

	common := target[targetPos:]
	if common == "" {
		// The shared bytes do not cover a whole label.
		return false
	}
	return !pse.IsPublicSuffix(common)
}

// hostEndsWithLabel reports whether target is host-equal to current or is a
// dot-delimited subdomain of it (redirect.cpp's ends_with + boundary check).
func hostEndsWithLabel(target, current string) bool {
	if target == current {
		return true
	}
	if !strings.HasSuffix(target, current) {
		return false
	}
	return target[len(target)-len(current)-1] == '.'
}

// shouldRedirect implements spec.md §4.5's redirect scope policy table,
// ported from redirect.cpp's should_redirect switch.
func shouldRedirect(mode RedirectMode, current, target *url.URL, pse *publicsuffix.List) bool {
	currentHost := asciiHost(current.Hostname())
	targetHost := asciiHost(target.Hostname())

	switch mode {
	case RedirectAny:
		return true

	case RedirectPrivateDomain:
		return privateDomainAllows(currentHost, targetHost, pse)

	case RedirectSubdomain:
		if targetHost == "" || hostEndsWithLabel(targetHost, currentHost) {
			return true
		}
		return targetHost == currentHost // falls through to domain's check

	case RedirectDomain:
		return targetHost == "" || targetHost == currentHost

	case RedirectEndpoint:
		if targetHost != "" && targetHost != currentHost {
			return false
		}
		tp, cp := getPort(target), getPort(current)
		return tp != 0 && tp == cp

	case RedirectNone:
		return false

	default:
		return false
	}
}
