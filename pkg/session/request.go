package session

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/cppalliance/gorequests/pkg/errors"
	"github.com/cppalliance/gorequests/pkg/header"
	"github.com/cppalliance/gorequests/pkg/source"
	"github.com/cppalliance/gorequests/pkg/stream"
)

var redirectStatusCodes = map[int]bool{
	http.StatusMovedPermanently:  true, // 301
	http.StatusFound:             true, // 302
	http.StatusSeeOther:          true, // 303
	http.StatusTemporaryRedirect: true, // 307
	http.StatusPermanentRedirect: true, // 308
}

// Request performs method against rawURL, following redirects per the
// session's (or the override opts's) policy, spec.md §4.5's redirect loop.
// The returned Stream's History() carries one Response per hop followed.
func (s *Session) Request(ctx context.Context, method, rawURL string, headers http.Header, src source.Source, opts *RequestOptions) (*stream.Stream, error) {
	effective := s.cfg.Options
	if opts != nil {
		effective = *opts
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewValidationError("invalid url: " + rawURL)
	}
	if headers == nil {
		headers = make(http.Header)
	}

	var history []stream.Response
	hops := 0

	for {
		if effective.EnforceTLS && !isTLSScheme(strings.ToLower(target.Scheme)) {
			return nil, errors.NewInsecureError(target.String())
		}

		o, err := normalizeOrigin(target)
		if err != nil {
			return nil, err
		}

		p, err := s.getPool(ctx, o)
		if err != nil {
			return nil, err
		}

		path := target.RequestURI()
		st, err := p.Ropen(ctx, method, path, headers, src, s.jar, isTLSScheme(o.scheme), nil)
		if err != nil {
			return nil, err
		}

		if !redirectStatusCodes[st.StatusCode()] || hops >= effective.MaxRedirects {
			if redirectStatusCodes[st.StatusCode()] {
				st.Dump()
				return nil, errors.NewTooManyRedirectsError(effective.MaxRedirects)
			}
			st.PrependHistory(history)
			return st, nil
		}

		location := st.Headers().Get("Location")
		if location == "" {
			st.PrependHistory(history)
			return st, nil
		}

		body, dumpErr := drainForHistory(st)
		hop := stream.Response{
			StatusCode: st.StatusCode(),
			StatusLine: st.StatusLine(),
			Headers:    st.Headers(),
			Body:       body,
			History:    st.History(),
		}
		history = append(history, hop)
		if dumpErr != nil {
			return nil, dumpErr
		}

		nextTarget, err := header.InterpretLocation(target.String(), location)
		if err != nil {
			return nil, errors.NewInvalidRedirectError("location: " + location)
		}

		if !shouldRedirect(effective.RedirectMode, target, nextTarget, s.cfg.PublicSuffix) {
			return nil, errors.NewForbiddenRedirectError(redirectModeName(effective.RedirectMode), target.String(), nextTarget.String())
		}

		// The top-of-loop check above catches nextTarget too once it becomes
		// target on the next iteration, so EnforceTLS doesn't need a second,
		// downgrade-specific test here.

		hops++

		statusCode := hop.StatusCode
		if statusCode == http.StatusSeeOther || ((statusCode == http.StatusMovedPermanently || statusCode == http.StatusFound) && method == http.MethodPost) {
			method = http.MethodGet
			src = source.Empty{}
			headers = cloneForRedirect(headers)
			headers.Del("Content-Type")
			headers.Del("Content-Length")
		} else {
			if err := src.Reset(); err != nil {
				return nil, errors.NewInvalidRedirectError("body source cannot be replayed")
			}
			headers = cloneForRedirect(headers)
		}

		target = nextTarget
	}
}

// drainForHistory reads whatever body bytes remain (bounded, since this is
// an intermediate hop's record rather than the final response) and releases
// the connection lease.
func drainForHistory(st *stream.Stream) ([]byte, error) {
	const maxHistoryBody = 64 * 1024
	body, err := st.ReadAll(maxHistoryBody)
	if err != nil {
		st.Close()
	}
	return body, err
}

func cloneForRedirect(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = append([]string{}, v...)
	}
	return out
}

func redirectModeName(m RedirectMode) string {
	switch m {
	case RedirectNone:
		return "none"
	case RedirectEndpoint:
		return "endpoint"
	case RedirectDomain:
		return "domain"
	case RedirectSubdomain:
		return "subdomain"
	case RedirectPrivateDomain:
		return "private_domain"
	case RedirectAny:
		return "any"
	default:
		return "unknown"
	}
}

// Stream is Request with the body left unread for incremental consumption;
// it is identical to Request today, named separately to match spec.md §6's
// request/stream/download trio and leave room for header-only variants.
func (s *Session) Stream(ctx context.Context, method, rawURL string, headers http.Header, src source.Source, opts *RequestOptions) (*stream.Stream, error) {
	return s.Request(ctx, method, rawURL, headers, src, opts)
}

// Download performs method against rawURL and returns the fully buffered
// body, matching spec.md §6's download convenience that collapses a Stream
// into one []byte.
func (s *Session) Download(ctx context.Context, method, rawURL string, headers http.Header, src source.Source, opts *RequestOptions) (*stream.Response, error) {
	st, err := s.Request(ctx, method, rawURL, headers, src, opts)
	if err != nil {
		return nil, err
	}
	body, err := st.ReadAll(0)
	if err != nil {
		return nil, err
	}
	return &stream.Response{
		StatusCode: st.StatusCode(),
		StatusLine: st.StatusLine(),
		Headers:    st.Headers(),
		Body:       body,
		History:    st.History(),
	}, nil
}

func verb(ctx context.Context, s *Session, method, rawURL string, headers http.Header) (*stream.Response, error) {
	return s.Download(ctx, method, rawURL, headers, source.Empty{}, nil)
}

// Get, Head, Delete, Options, Trace carry no request body.
func (s *Session) Get(ctx context.Context, rawURL string, headers http.Header) (*stream.Response, error) {
	return verb(ctx, s, http.MethodGet, rawURL, headers)
}

func (s *Session) Head(ctx context.Context, rawURL string, headers http.Header) (*stream.Response, error) {
	return verb(ctx, s, http.MethodHead, rawURL, headers)
}

func (s *Session) Delete(ctx context.Context, rawURL string, headers http.Header) (*stream.Response, error) {
	return verb(ctx, s, http.MethodDelete, rawURL, headers)
}

func (s *Session) Options(ctx context.Context, rawURL string, headers http.Header) (*stream.Response, error) {
	return verb(ctx, s, http.MethodOptions, rawURL, headers)
}

func (s *Session) Trace(ctx context.Context, rawURL string, headers http.Header) (*stream.Response, error) {
	return verb(ctx, s, http.MethodTrace, rawURL, headers)
}

// Post, Put, Patch carry a request body source.
func (s *Session) Post(ctx context.Context, rawURL string, headers http.Header, src source.Source) (*stream.Response, error) {
	return s.Download(ctx, http.MethodPost, rawURL, headers, src, nil)
}

func (s *Session) Put(ctx context.Context, rawURL string, headers http.Header, src source.Source) (*stream.Response, error) {
	return s.Download(ctx, http.MethodPut, rawURL, headers, src, nil)
}

func (s *Session) Patch(ctx context.Context, rawURL string, headers http.Header, src source.Source) (*stream.Response, error) {
	return s.Download(ctx, http.MethodPatch, rawURL, headers, src, nil)
}
