package source

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cppalliance/gorequests/pkg/errors"
)

// defaultMIMETypes mirrors the C++ original's default_mime_type_map
// (boost/requests/mime_types.hpp): a small built-in extension table, not the
// full system mime.types database.
var defaultMIMETypes = map[string]string{
	".txt":  "text/plain",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".csv":  "text/csv",
	".wasm": "application/wasm",
}

// File is a body source backed by an open file handle, whose Reset seeks
// back to the start instead of re-opening the path.
type File struct {
	f    *os.File
	path string
	size int64
}

// NewFile opens path and returns a File source sized from a stat call.
func NewFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewValidationError("open file source: " + err.Error())
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.NewValidationError("stat file source: " + err.Error())
	}
	return &File{f: f, path: path, size: info.Size()}, nil
}

func (f *File) Size() (int64, bool) { return f.size, true }

func (f *File) Reset() error {
	_, err := f.f.Seek(0, io.SeekStart)
	return err
}

func (f *File) ReadSome(p []byte) (int, error) {
	return f.f.Read(p)
}

func (f *File) ContentType() string {
	if ct, ok := defaultMIMETypes[filepath.Ext(f.path)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Close releases the underlying file handle.
func (f *File) Close() error {
	return f.f.Close()
}

var _ Source = (*File)(nil)
