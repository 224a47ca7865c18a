package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// Part is one field of a multipart/form-data body: either a plain value or a
// file attachment (when Filename is non-empty).
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Multipart is a multipart/form-data body source, ported from the C++
// original's multi_part_form_source (sources/form.hpp), which streams each
// part through a coroutine; Go assembles the whole body once at construction,
// matching the rest of this package's eager-source style.
type Multipart struct {
	boundary string
	buf      *Buffer
}

// boundaryValue returns a 32-character boundary, the Go analogue of the C++
// original's detail::make_boundary_value() random alnum string — built from
// a UUIDv4 with its separators stripped, per github.com/google/uuid.
func boundaryValue() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewMultipart assembles parts into a single multipart/form-data body.
func NewMultipart(parts []Part) (*Multipart, error) {
	boundary := boundaryValue()
	var body bytes.Buffer

	for _, p := range parts {
		if p.Name == "" {
			return nil, errors.NewValidationError("multipart part missing name")
		}
		fmt.Fprintf(&body, "--%s\r\n", boundary)
		if p.Filename != "" {
			fmt.Fprintf(&body, "Content-Disposition: form-data; name=%q; filename=%q\r\n", p.Name, p.Filename)
		} else {
			fmt.Fprintf(&body, "Content-Disposition: form-data; name=%q\r\n", p.Name)
		}
		ct := p.ContentType
		if ct == "" {
			ct = "text/plain"
		}
		fmt.Fprintf(&body, "Content-Type: %s\r\n\r\n", ct)
		body.Write(p.Data)
		body.WriteString("\r\n")
	}
	fmt.Fprintf(&body, "--%s--", boundary)

	return &Multipart{boundary: boundary, buf: NewBuffer(body.Bytes())}, nil
}

func (m *Multipart) Size() (int64, bool)           { return m.buf.Size() }
func (m *Multipart) Reset() error                   { return m.buf.Reset() }
func (m *Multipart) ReadSome(p []byte) (int, error) { return m.buf.ReadSome(p) }
func (m *Multipart) ContentType() string {
	return "multipart/form-data; boundary=" + m.boundary
}

var _ Source = (*Multipart)(nil)
