package cookiejar

import (
	"testing"
	"time"
)

func TestSetHostOnlyCookie(t *testing.T) {
	j := New(nil)
	ok := j.Set(SetCookie{Name: "sid", Value: "abc"}, "example.com", "/a/b", false)
	if !ok {
		t.Fatal("expected cookie to be accepted")
	}
	got := j.Get("example.com", "/a/b", "http")
	if len(got) != 1 || got[0].Value != "abc" {
		t.Fatalf("unexpected cookies: %+v", got)
	}
	if !got[0].HostOnly {
		t.Fatal("expected host-only flag")
	}
}

func TestSetDomainCookieRejectsMismatch(t *testing.T) {
	j := New(nil)
	ok := j.Set(SetCookie{Name: "sid", Value: "abc", Domain: "other.com"}, "example.com", "/", false)
	if ok {
		t.Fatal("expected cookie with mismatched domain to be rejected")
	}
}

func TestSetDomainCookieAllowsSubdomain(t *testing.T) {
	j := New(nil)
	ok := j.Set(SetCookie{Name: "sid", Value: "abc", Domain: "example.com"}, "www.example.com", "/", false)
	if !ok {
		t.Fatal("expected parent-domain cookie to be accepted from subdomain request")
	}
	got := j.Get("shop.example.com", "/", "http")
	if len(got) != 1 {
		t.Fatalf("expected cookie visible on sibling subdomain, got %+v", got)
	}
}

func TestSetRejectsPublicSuffixDomainUnlessExact(t *testing.T) {
	j := New(nil)
	if j.Set(SetCookie{Name: "x", Value: "y", Domain: "com"}, "example.com", "/", false) {
		t.Fatal("expected public-suffix Domain attribute to be rejected")
	}
	if !j.Set(SetCookie{Name: "x", Value: "y", Domain: "com"}, "com", "/", false) {
		t.Fatal("expected exact host match against a public suffix to be accepted")
	}
}

func TestHTTPOnlyRejectedFromNonHTTPAPI(t *testing.T) {
	j := New(nil)
	ok := j.Set(SetCookie{Name: "sid", Value: "abc", HTTPOnly: true}, "example.com", "/", true)
	if ok {
		t.Fatal("expected http-only cookie to be rejected when set via non-HTTP API")
	}
}

func TestGetOrdersByPathLengthThenCreationTime(t *testing.T) {
	j := New(nil)
	j.Set(SetCookie{Name: "a", Value: "1", Path: "/"}, "example.com", "/", false)
	time.Sleep(time.Millisecond)
	j.Set(SetCookie{Name: "b", Value: "2", Path: "/deep"}, "example.com", "/deep", false)
	time.Sleep(time.Millisecond)
	j.Set(SetCookie{Name: "c", Value: "3", Path: "/"}, "example.com", "/", false)

	got := j.Get("example.com", "/deep/x", "http")
	if len(got) != 3 || got[0].Name != "b" {
		t.Fatalf("expected longer path first, got %+v", got)
	}
	if got[1].Name != "a" || got[2].Name != "c" {
		t.Fatalf("expected equal-length paths oldest first (a, c), got %+v", got)
	}
}

func TestExpiredCookieNotReturned(t *testing.T) {
	j := New(nil)
	j.Set(SetCookie{Name: "a", Value: "1", MaxAge: -time.Second, HasMaxAge: true}, "example.com", "/", false)
	if got := j.Get("example.com", "/", "http"); len(got) != 0 {
		t.Fatalf("expected expired cookie to be dropped, got %+v", got)
	}
}

func TestExplicitZeroMaxAgeExpiresImmediately(t *testing.T) {
	j := New(nil)
	accepted := j.Set(SetCookie{Name: "doc", Value: "foo", MaxAge: 0, HasMaxAge: true}, "example.com", "/", false)
	if accepted {
		t.Fatal("expected Max-Age=0 to be rejected as already expired")
	}
	if got := j.Get("example.com", "/", "http"); len(got) != 0 {
		t.Fatalf("expected no cookie stored for Max-Age=0, got %+v", got)
	}
}

func TestSecureCookieNotSentOverPlainHTTP(t *testing.T) {
	j := New(nil)
	j.Set(SetCookie{Name: "a", Value: "1", Secure: true}, "example.com", "/", false)
	if got := j.Get("example.com", "/", "http"); len(got) != 0 {
		t.Fatalf("expected secure cookie withheld on http, got %+v", got)
	}
	if got := j.Get("example.com", "/", "https"); len(got) != 1 {
		t.Fatalf("expected secure cookie sent on https, got %+v", got)
	}
}
