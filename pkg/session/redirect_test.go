package session

import (
	"net/url"
	"testing"

	"github.com/cppalliance/gorequests/pkg/publicsuffix"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestGetPortDefaults(t *testing.T) {
	cases := []struct {
		url  string
		want int
	}{
		{"http://example.com/", 80},
		{"https://example.com/", 443},
		{"ws://example.com/", 80},
		{"wss://example.com/", 443},
		{"http://example.com:8080/", 8080},
		{"unix:///tmp/sock", 0},
	}
	for _, c := range cases {
		if got := getPort(mustURL(t, c.url)); got != c.want {
			t.Errorf("getPort(%q) = %d, want %d", c.url, got, c.want)
		}
	}
}

func TestShouldRedirectNone(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://a.example.com/")
	target := mustURL(t, "https://a.example.com/other")
	if shouldRedirect(RedirectNone, current, target, pse) {
		t.Fatal("none mode must never allow a redirect")
	}
}

func TestShouldRedirectDomainRejectsCrossOrigin(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://example.com/")
	target := mustURL(t, "https://evil.test/")
	if shouldRedirect(RedirectDomain, current, target, pse) {
		t.Fatal("domain mode must reject a different host")
	}
	if !shouldRedirect(RedirectAny, current, target, pse) {
		t.Fatal("any mode must allow any target")
	}
}

func TestShouldRedirectSubdomain(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://example.com/")
	if !shouldRedirect(RedirectSubdomain, current, mustURL(t, "https://api.example.com/"), pse) {
		t.Fatal("subdomain mode must allow a subdomain of the current host")
	}
	if shouldRedirect(RedirectSubdomain, current, mustURL(t, "https://notexample.com/"), pse) {
		t.Fatal("subdomain mode must not match on a bare string suffix across a label boundary")
	}
}

func TestShouldRedirectEndpointRequiresSamePort(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://example.com/")
	if !shouldRedirect(RedirectEndpoint, current, mustURL(t, "https://example.com/path"), pse) {
		t.Fatal("endpoint mode must allow same host and port")
	}
	if shouldRedirect(RedirectEndpoint, current, mustURL(t, "https://example.com:8443/path"), pse) {
		t.Fatal("endpoint mode must reject a different port")
	}
}

func TestShouldRedirectPrivateDomainAllowsSharedRegistrableDomain(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://a.example.com/")
	target := mustURL(t, "https://b.example.com/")
	if !shouldRedirect(RedirectPrivateDomain, current, target, pse) {
		t.Fatal("private_domain mode must allow hosts sharing a non-public registrable domain")
	}
}

func TestShouldRedirectPrivateDomainRejectsBarePublicSuffix(t *testing.T) {
	pse := publicsuffix.Default()
	current := mustURL(t, "https://a.co.uk/")
	target := mustURL(t, "https://b.co.uk/")
	if shouldRedirect(RedirectPrivateDomain, current, target, pse) {
		t.Fatal("private_domain mode must reject hosts that only share a public suffix")
	}
}

func TestPrivateDomainMonotonicity(t *testing.T) {
	// none ⊂ endpoint ⊂ domain ⊂ subdomain ⊂ private_domain ⊂ any, per spec's
	// testable property: whatever a stricter mode allows, a looser mode also
	// allows.
	pse := publicsuffix.Default()
	current := mustURL(t, "https://api.example.com:443/")
	target := mustURL(t, "https://api.example.com:443/other")

	modes := []RedirectMode{RedirectNone, RedirectEndpoint, RedirectDomain, RedirectSubdomain, RedirectPrivateDomain, RedirectAny}
	seenAllow := false
	for _, m := range modes {
		allowed := shouldRedirect(m, current, target, pse)
		if seenAllow && !allowed {
			t.Fatalf("mode %v disallowed a target a stricter mode already allowed", m)
		}
		if allowed {
			seenAllow = true
		}
	}
}
