// Package header implements the small header-value grammars the session and
// connection layers need to parse: HTTP-dates, Set-Cookie, Keep-Alive, Link,
// and Location resolution. These have no counterpart in the teacher library
// (pkg/errors/pkg/buffer/pkg/timing cover its ambient concerns, not wire
// grammar), so they're grounded directly on the RFCs and, where the spec is
// silent, on the C++ original under _examples/original_source.
package header

import (
	"strconv"
	"strings"
	"time"
)

var httpDateLayouts = []string{
	time.RFC1123,                        // Sun, 06 Nov 1994 08:49:37 GMT
	"Mon, 02-Jan-2006 15:04:05 MST",      // dash-separated IMF-fixdate some servers emit
	"Mon, 02-Jan-06 15:04:05 MST",        // RFC 850 year-2000-ambiguous form some servers emit
	time.RFC850,                         // Sunday, 06-Nov-94 08:49:37 GMT
	"Monday, 02-Jan-2006 15:04:05 MST",   // RFC 850 grammar with a non-conforming 4-digit year
	"Mon Jan  2 15:04:05 2006",           // asctime()
	"Mon Jan _2 15:04:05 2006",
}

// ParseDate parses an HTTP-date (RFC 7231 §7.1.1.1): the preferred
// IMF-fixdate form, obsolete RFC 850 form (and the 4-digit-year variant of it
// some servers send), or asctime() form. The result is always in UTC.
//
// Beyond what time.Parse checks, RFC 7231 §7.1.1.1 requires two things it
// doesn't validate on its own: the year must not be before 1970, and the
// weekday name must match the weekday the rest of the date fields compute to.
// Formatting the parsed time back out through the layout that matched and
// comparing against the input catches both in one step, since Format always
// renders the weekday implied by the date, not the one that was parsed.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range httpDateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.Year() < 1970 {
			return time.Time{}, false
		}
		if t.Format(layout) != value {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// FormatDate renders t as an IMF-fixdate, the form RFC 7231 requires servers
// to send and recommends clients emit when writing a date header themselves.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC1123)
}

// ParseMaxAge parses the numeric N of a "Max-Age=N" Set-Cookie attribute
// (the same delta-seconds form Cache-Control's max-age uses).
func ParseMaxAge(value string) (time.Duration, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
