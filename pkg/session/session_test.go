package session

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/cppalliance/gorequests/pkg/source"
)

// scriptedServer replies to requests on a single host:port with canned
// responses in order, looping the last one if more requests arrive than
// scripted responses (matching keep-alive reuse across a test's lifetime).
func scriptedServer(t *testing.T, responses []string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		for i := 0; ; i++ {
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if line == "\r\n" {
					break
				}
			}
			idx := i
			if idx >= len(responses) {
				idx = len(responses) - 1
			}
			if _, err := conn.Write([]byte(responses[idx])); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New(Config{Options: RequestOptions{EnforceTLS: false, RedirectMode: RedirectPrivateDomain, MaxRedirects: 5}})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRequestFollowsRedirectAndAccumulatesHistory(t *testing.T) {
	addr := scriptedServer(t, []string{
		"HTTP/1.1 302 Found\r\nLocation: /next\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone",
	})

	s := newTestSession(t)
	st, err := s.Request(context.Background(), http.MethodGet, "http://"+addr+"/start", nil, source.Empty{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if st.StatusCode() != 200 {
		t.Fatalf("expected final status 200, got %d", st.StatusCode())
	}
	body, err := st.ReadAll(0)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "done" {
		t.Fatalf("expected body %q, got %q", "done", body)
	}
	if len(st.History()) != 1 || st.History()[0].StatusCode != 302 {
		t.Fatalf("expected one 302 hop in history, got %+v", st.History())
	}
}

func TestRequestRejectsForbiddenCrossOriginRedirect(t *testing.T) {
	addr := scriptedServer(t, []string{
		"HTTP/1.1 302 Found\r\nLocation: http://evil.test.invalid/steal\r\nContent-Length: 0\r\n\r\n",
	})

	s := newTestSession(t)
	opts := RequestOptions{EnforceTLS: false, RedirectMode: RedirectDomain, MaxRedirects: 5}
	_, err := s.Request(context.Background(), http.MethodGet, "http://"+addr+"/start", nil, source.Empty{}, &opts)
	if err == nil {
		t.Fatal("expected cross-origin redirect to be rejected under domain mode")
	}
}

func TestRequestTooManyRedirectsFails(t *testing.T) {
	addr := scriptedServer(t, []string{
		"HTTP/1.1 302 Found\r\nLocation: /loop\r\nContent-Length: 0\r\n\r\n",
	})

	s := newTestSession(t)
	opts := RequestOptions{EnforceTLS: false, RedirectMode: RedirectAny, MaxRedirects: 2}
	_, err := s.Request(context.Background(), http.MethodGet, "http://"+addr+"/start", nil, source.Empty{}, &opts)
	if err == nil {
		t.Fatal("expected too-many-redirects error")
	}
}

func TestBasicAuthHeader(t *testing.T) {
	got := BasicAuth("alice", "secret")
	want := "Basic YWxpY2U6c2VjcmV0"
	if got != want {
		t.Fatalf("BasicAuth() = %q, want %q", got, want)
	}
}

func TestBearerHeader(t *testing.T) {
	if got := Bearer("tok123"); got != "Bearer tok123" {
		t.Fatalf("Bearer() = %q", got)
	}
}

func TestNormalizeOriginDefaultsSchemeAndPort(t *testing.T) {
	u := mustURL(t, "//example.com/path")
	o, err := normalizeOrigin(u)
	if err != nil {
		t.Fatal(err)
	}
	if o.scheme != "https" || o.port != 443 {
		t.Fatalf("expected https:443 default origin, got %+v", o)
	}
}

func TestDefaultSessionIsSingleton(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Fatal("Default() must return the same Session instance")
	}
}
