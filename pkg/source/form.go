package source

import "net/url"

// Form is a body source for application/x-www-form-urlencoded content,
// ported from the C++ original's form_source (sources/form.hpp), which
// streams url-encoded params; Go builds the encoded string once up front.
type Form struct {
	buf *Buffer
}

// NewForm encodes values as "a=1&b=2", sorted by key (matching
// url.Values.Encode's stable ordering).
func NewForm(values url.Values) *Form {
	return &Form{buf: NewBuffer([]byte(values.Encode()))}
}

func (f *Form) Size() (int64, bool)           { return f.buf.Size() }
func (f *Form) Reset() error                   { return f.buf.Reset() }
func (f *Form) ReadSome(p []byte) (int, error) { return f.buf.ReadSome(p) }
func (f *Form) ContentType() string            { return "application/x-www-form-urlencoded" }

var _ Source = (*Form)(nil)
