package header

import (
	"net/url"
	"strings"
)

// InterpretLocation resolves a Location header value against the URL of the
// request that produced it, per RFC 7231 §7.1.2 plus one non-standard
// carryover the C++ original applies (see
// _examples/original_source/src/fields/location.cpp): when the redirect
// target is path-absolute and carries no fragment of its own, the current
// target's fragment is preserved onto it, rather than being dropped the way
// plain RFC 3986 reference resolution would.
func InterpretLocation(currentTarget, location string) (*url.URL, error) {
	loc, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	current, err := url.Parse(currentTarget)
	if err != nil {
		return nil, err
	}

	// ResolveReference implements RFC 3986 §5.3: for a path-absolute or
	// relative reference it merges the current target's scheme/authority,
	// and for an absolute reference (its own scheme+host) it returns loc
	// unchanged. Either way the result is what the redirect should target.
	resolved := current.ResolveReference(loc)

	pathAbsolute := loc.Scheme == "" && loc.Host == "" && (strings.HasPrefix(loc.Path, "/") || loc.Opaque != "")
	if pathAbsolute && loc.Fragment == "" && current.Fragment != "" {
		resolved.Fragment = current.Fragment
		resolved.RawFragment = current.RawFragment
	}
	return resolved, nil
}
