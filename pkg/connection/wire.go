package connection

import (
	"bufio"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// readResponseHead reads the status line and header block, mirroring the
// teacher's readLine/parseStatusLine/readHeaders trio (pkg/client/client.go)
// but stopping at the header/body boundary instead of going on to read a body.
func readResponseHead(r *bufio.Reader) (statusCode int, statusLine, httpVersion string, headers http.Header, err error) {
	statusLine, err = readLine(r)
	if err != nil {
		return 0, "", "", nil, errors.NewHTTPParseError("reading status line", err)
	}

	statusCode, httpVersion, err = parseStatusLine(statusLine)
	if err != nil {
		return 0, "", "", nil, err
	}

	headers, err = readHeaders(r)
	if err != nil {
		return 0, "", "", nil, err
	}
	return statusCode, statusLine, httpVersion, headers, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	if len(line) >= 2 && line[len(line)-2:] == "\r\n" {
		return line[:len(line)-2], nil
	}
	return strings.TrimRight(line, "\n"), nil
}

func parseStatusLine(statusLine string) (code int, httpVersion string, err error) {
	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return 0, "", errors.NewHTTPParseError("invalid status line", nil)
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", errors.NewHTTPParseError("invalid status code", err)
	}
	return code, parts[0], nil
}

// readHeaders reads the CRLF-terminated header block, folding RFC 7230
// §3.2.4 continuation lines (leading space/tab) into the previous header's
// value the same way the teacher's readHeaders does.
func readHeaders(r *bufio.Reader) (http.Header, error) {
	headers := make(http.Header)
	total := 0
	var lastKey string

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, errors.NewHTTPParseError("reading headers", err)
		}
		total += len(line)
		if total > maxHeaderBytes {
			return nil, errors.NewHTTPParseError("headers exceed maximum size", nil)
		}
		if line == "\r\n" || line == "\n" {
			break
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(trimmed, " ") || strings.HasPrefix(trimmed, "\t") {
			if lastKey == "" {
				continue
			}
			vs := headers[lastKey]
			idx := len(vs) - 1
			vs[idx] = vs[idx] + " " + strings.TrimSpace(trimmed)
			continue
		}

		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		headers[key] = append(headers[key], value)
		lastKey = key
	}

	return headers, nil
}
