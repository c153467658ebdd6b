package ecsfs

import (
	"fmt"

	"github.com/pmackle/ecsfs/errors"
)

// handle is one slot in the descriptor table: which directory entry it
// refers to, and the byte cursor for the next read. Descriptor numbers are
// the slot index plus one, so 0 is never a valid descriptor.
type handle struct {
	open     bool
	dirIndex int
	offset   uint32
}

// Open returns a descriptor for name with the cursor at offset 0. The same
// file may be open through several descriptors at once; each keeps its own
// cursor.
func (fs *FileSystem) Open(name string) (int, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	if err := validateFilename(name); err != nil {
		return 0, err
	}
	if fs.openCount >= OpenMaxCount {
		return 0, errors.TooManyOpen
	}

	index, err := fs.findFile(name)
	if err != nil {
		return 0, err
	}

	for i := range fs.handles {
		if fs.handles[i].open {
			continue
		}
		fs.handles[i] = handle{open: true, dirIndex: index}
		fs.openCount++
		return i + 1, nil
	}

	return 0, errors.TooManyOpen
}

// handleAt maps a descriptor to its table slot.
func (fs *FileSystem) handleAt(fd int) (*handle, error) {
	if fd < 1 || fd > OpenMaxCount || !fs.handles[fd-1].open {
		return nil, errors.BadFD.WithMessage(fmt.Sprintf("descriptor %d", fd))
	}
	return &fs.handles[fd-1], nil
}

// Close releases the descriptor fd.
func (fs *FileSystem) Close(fd int) error {
	if err := fs.mounted(); err != nil {
		return err
	}

	h, err := fs.handleAt(fd)
	if err != nil {
		return err
	}
	*h = handle{}
	fs.openCount--
	return nil
}

// Stat returns the current size in bytes of the file fd refers to.
func (fs *FileSystem) Stat(fd int) (int, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}

	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}
	return int(fs.root[h.dirIndex].FileSize), nil
}

// Lseek moves fd's cursor to an absolute byte offset. The offset may be
// anywhere from 0 through the file size; pointing exactly at the end is
// legal and makes the next read return 0.
func (fs *FileSystem) Lseek(fd int, offset int) error {
	if err := fs.mounted(); err != nil {
		return err
	}

	h, err := fs.handleAt(fd)
	if err != nil {
		return err
	}

	size := int(fs.root[h.dirIndex].FileSize)
	if offset < 0 || offset > size {
		return errors.OffsetOutOfRange.WithMessage(fmt.Sprintf(
			"offset %d not in [0, %d]", offset, size))
	}
	h.offset = uint32(offset)
	return nil
}
