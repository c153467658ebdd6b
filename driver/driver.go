// Package driver wraps the ecsfs core in the classic integer-return API:
// every call answers 0 (or a non-negative count/descriptor) on success and
// -1 on failure, with diagnostics going to a configurable writer. It exists
// for callers porting code written against that convention; new code should
// use the ecsfs package directly and inspect the returned errors.
package driver

import (
	"io"
	"os"

	"github.com/pmackle/ecsfs"
)

// Driver holds at most one mounted filesystem and fronts it with the
// integer-convention API. The zero value is unusable; call New.
type Driver struct {
	fs  *ecsfs.FileSystem
	out io.Writer
}

// New returns an unmounted Driver whose diagnostics go to stdout.
func New() *Driver {
	return &Driver{out: os.Stdout}
}

// NewWithOutput returns an unmounted Driver whose Info and Ls output goes
// to w instead of stdout.
func NewWithOutput(w io.Writer) *Driver {
	return &Driver{out: w}
}

// Mount opens the disk image at diskname and mounts it. Mounting while
// already mounted fails.
func (d *Driver) Mount(diskname string) int {
	if d.fs != nil {
		return -1
	}

	fs, err := ecsfs.MountImage(diskname)
	if err != nil {
		return -1
	}
	d.fs = fs
	return 0
}

// Umount flushes metadata, closes the disk, and forgets the filesystem.
func (d *Driver) Umount() int {
	if d.fs == nil {
		return -1
	}
	if err := d.fs.Unmount(); err != nil {
		return -1
	}
	d.fs = nil
	return 0
}

// Info prints the filesystem summary.
func (d *Driver) Info() int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.Info(d.out))
}

// Ls prints one line per file in the root directory.
func (d *Driver) Ls() int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.List(d.out))
}

// Create adds an empty file.
func (d *Driver) Create(filename string) int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.Create(filename))
}

// Delete removes a file and frees its blocks.
func (d *Driver) Delete(filename string) int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.Delete(filename))
}

// Open returns a descriptor for filename, or -1.
func (d *Driver) Open(filename string) int {
	if d.fs == nil {
		return -1
	}

	fd, err := d.fs.Open(filename)
	if err != nil {
		return -1
	}
	return fd
}

// Close releases a descriptor.
func (d *Driver) Close(fd int) int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.Close(fd))
}

// Stat returns the size of the open file, or -1.
func (d *Driver) Stat(fd int) int {
	if d.fs == nil {
		return -1
	}

	size, err := d.fs.Stat(fd)
	if err != nil {
		return -1
	}
	return size
}

// Lseek moves a descriptor's cursor to an absolute offset.
func (d *Driver) Lseek(fd int, offset int) int {
	if d.fs == nil {
		return -1
	}
	return ecsfs.Errno(d.fs.Lseek(fd, offset))
}

// Read transfers up to len(buf) bytes from the cursor position and returns
// the count, advancing the cursor.
func (d *Driver) Read(fd int, buf []byte) int {
	if d.fs == nil {
		return -1
	}

	n, err := d.fs.Read(fd, buf)
	if err != nil {
		return -1
	}
	return n
}

// Write transfers up to len(buf) bytes at the cursor position and returns
// the count. As in the core, the cursor does not move.
func (d *Driver) Write(fd int, buf []byte) int {
	if d.fs == nil {
		return -1
	}

	n, err := d.fs.Write(fd, buf)
	if err != nil {
		return -1
	}
	return n
}
