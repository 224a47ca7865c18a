package header

import (
	"strings"

	"github.com/cppalliance/gorequests/pkg/cookiejar"
)

// ParseSetCookie parses one Set-Cookie header value per RFC 6265 §5.2. The
// name=value pair must be first; later unknown attributes are ignored.
func ParseSetCookie(value string) (cookiejar.SetCookie, bool) {
	parts := strings.Split(value, ";")
	nameValue := strings.TrimSpace(parts[0])
	eq := strings.IndexByte(nameValue, '=')
	if eq < 0 {
		return cookiejar.SetCookie{}, false
	}
	sc := cookiejar.SetCookie{
		Name:  strings.TrimSpace(nameValue[:eq]),
		Value: strings.Trim(strings.TrimSpace(nameValue[eq+1:]), `"`),
	}
	if sc.Name == "" {
		return cookiejar.SetCookie{}, false
	}

	for _, raw := range parts[1:] {
		attr := strings.TrimSpace(raw)
		if attr == "" {
			continue
		}
		var key, val string
		if eq := strings.IndexByte(attr, '='); eq >= 0 {
			key = strings.ToLower(strings.TrimSpace(attr[:eq]))
			val = strings.TrimSpace(attr[eq+1:])
		} else {
			key = strings.ToLower(attr)
		}

		switch key {
		case "domain":
			sc.Domain = strings.TrimPrefix(val, ".")
		case "path":
			sc.Path = val
		case "secure":
			sc.Secure = true
		case "httponly":
			sc.HTTPOnly = true
		case "max-age":
			if d, ok := ParseMaxAge(val); ok {
				sc.MaxAge = d
				sc.HasMaxAge = true
			}
		case "expires":
			if t, ok := ParseDate(val); ok {
				sc.Expires = t
			}
		// SameSite and other extension attributes are accepted and ignored:
		// the spec's redirect/pool scoping, not cookie transmission, governs
		// cross-site behavior here.
		default:
		}
	}
	return sc, true
}

// FormatCookieHeader joins cookies into a single Cookie request header value,
// "name1=value1; name2=value2", in the order given (callers pass them already
// sorted per RFC 6265 §5.4).
func FormatCookieHeader(cookies []cookiejar.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
