package driver

import (
	"fmt"
	"io"

	"github.com/pmackle/ecsfs"
	"github.com/pmackle/ecsfs/errors"
)

// File adapts one open descriptor to the standard stream interfaces:
// [io.Reader], [io.Writer], [io.Seeker], and [io.Closer]. The core's write
// leaves the cursor in place; File restores conventional
// stream behavior by seeking past the bytes each write lands, so a
// sequence of writes appends the way os.File callers expect.
type File struct {
	fs   *ecsfs.FileSystem
	fd   int
	name string
	pos  int
}

// OpenFile opens filename on the driver's mounted filesystem and wraps the
// descriptor in a File positioned at offset 0.
func (d *Driver) OpenFile(filename string) (*File, error) {
	if d.fs == nil {
		return nil, errors.NotMounted
	}

	fd, err := d.fs.Open(filename)
	if err != nil {
		return nil, err
	}
	return &File{fs: d.fs, fd: fd, name: filename}, nil
}

// Name returns the filename this File was opened with.
func (f *File) Name() string {
	return f.name
}

// Size returns the file's current length in bytes.
func (f *File) Size() (int, error) {
	return f.fs.Stat(f.fd)
}

// Read implements [io.Reader], returning io.EOF once the cursor reaches
// the end of the file.
func (f *File) Read(buf []byte) (int, error) {
	n, err := f.fs.Read(f.fd, buf)
	if err != nil {
		return n, err
	}
	f.pos += n
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements [io.Writer]. A transfer cut short by a full data region
// reports io.ErrShortWrite, as the interface requires.
func (f *File) Write(buf []byte) (int, error) {
	n, err := f.fs.Write(f.fd, buf)
	if err != nil {
		return n, err
	}

	f.pos += n
	if err := f.fs.Lseek(f.fd, f.pos); err != nil {
		return n, err
	}
	if n < len(buf) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Seek implements [io.Seeker]. Offsets beyond the end of the file are
// rejected; the filesystem has no sparse files to back them.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		size, err := f.fs.Stat(f.fd)
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, errors.OffsetOutOfRange.WithMessage(
			fmt.Sprintf("unknown whence %d", whence))
	}

	target := base + int(offset)
	if err := f.fs.Lseek(f.fd, target); err != nil {
		return 0, err
	}
	f.pos = target
	return int64(target), nil
}

// Close implements [io.Closer], releasing the descriptor.
func (f *File) Close() error {
	return f.fs.Close(f.fd)
}
