package header

import (
	"strconv"
	"strings"
	"time"
)

// KeepAlive holds the parsed parameters of a (non-standard but widely
// emitted) Keep-Alive response header, e.g. "timeout=5, max=100".
type KeepAlive struct {
	Timeout time.Duration
	Max     int
	HasMax  bool
}

// ParseKeepAlive parses a Keep-Alive header value. Unknown parameters are
// ignored; a header with neither timeout nor max still parses successfully
// with zero values.
func ParseKeepAlive(value string) KeepAlive {
	var ka KeepAlive
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "timeout":
			if n, err := strconv.Atoi(val); err == nil {
				ka.Timeout = time.Duration(n) * time.Second
			}
		case "max":
			if n, err := strconv.Atoi(val); err == nil {
				ka.Max = n
				ka.HasMax = true
			}
		}
	}
	return ka
}
