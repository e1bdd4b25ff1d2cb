// Package testhelper provides fakes for the backend.Storage interface so
// unit tests can exercise the byte-parsing logic in partition and e2fs
// without needing a real image file on disk.
package testhelper

import (
	"fmt"
	"os"

	"github.com/fsimg/e2fsck/backend"
)

type reader func(b []byte, offset int64) (int, error)
type writer func(b []byte, offset int64) (int, error)

// FileImpl implements backend.Storage (and backend.WritableFile, when Writer
// is set) over plain callback funcs, used to stub out an image file in tests.
type FileImpl struct {
	Reader reader
	Writer writer
}

var (
	_ backend.File         = (*FileImpl)(nil)
	_ backend.WritableFile = (*FileImpl)(nil)
	_ backend.Storage      = (*FileImpl)(nil)
)

// Writable returns itself as a backend.WritableFile when a Writer func was supplied.
func (f *FileImpl) Writable() (backend.WritableFile, error) {
	if f.Writer == nil {
		return nil, backend.ErrIncorrectOpenMode
	}
	return f, nil
}

func (f *FileImpl) Stat() (os.FileInfo, error) {
	return nil, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	return nil
}

// ReadAt read at a particular offset
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// WriteAt write at a particular offset
func (f *FileImpl) WriteAt(b []byte, offset int64) (int, error) {
	return f.Writer(b, offset)
}

// Seek seek a particular offset - does not actually work
//
//nolint:unused,revive // to implement the interface
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}
