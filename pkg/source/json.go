package source

import (
	"encoding/json"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// JSON marshals an arbitrary Go value to its request body once, at
// construction, matching the C++ original's eager boost::json::value
// sources (sources/json.hpp) rather than streaming the encoder.
type JSON struct {
	buf *Buffer
}

func NewJSON(v any) (*JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewValidationError("marshal json source: " + err.Error())
	}
	return &JSON{buf: NewBuffer(data)}, nil
}

func (j *JSON) Size() (int64, bool)           { return j.buf.Size() }
func (j *JSON) Reset() error                   { return j.buf.Reset() }
func (j *JSON) ReadSome(p []byte) (int, error) { return j.buf.ReadSome(p) }
func (j *JSON) ContentType() string            { return "application/json" }

var _ Source = (*JSON)(nil)
