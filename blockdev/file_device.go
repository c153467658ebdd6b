package blockdev

import (
	"io"
	"os"

	"github.com/pmackle/ecsfs/errors"
)

// FileDevice is a Device backed by a regular file on the host filesystem,
// the way a real disk image is normally presented to this kind of tool.
type FileDevice struct {
	file        *os.File
	totalBlocks int
}

// OpenFileDevice opens name as a block device. The file's size must be an
// exact multiple of BlockSize; the total block count is derived from it.
func OpenFileDevice(name string) (*FileDevice, error) {
	file, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.InvalidDisk.WrapError(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.InvalidDisk.WrapError(err)
	}

	if info.Size()%BlockSize != 0 {
		file.Close()
		return nil, errors.InvalidDisk.WithMessage(
			"file size is not a multiple of the block size")
	}

	return &FileDevice{
		file:        file,
		totalBlocks: int(info.Size() / BlockSize),
	}, nil
}

// CreateFileDevice creates a new, zero-filled block device file of exactly
// totalBlocks blocks. It is meant for test fixtures and embedding
// applications, not for an end-user-facing disk formatting command; see the
// top-level testing package for the filesystem structures laid down on top
// of a freshly created device.
func CreateFileDevice(name string, totalBlocks int) (*FileDevice, error) {
	file, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.InvalidDisk.WrapError(err)
	}

	if err := file.Truncate(int64(totalBlocks) * BlockSize); err != nil {
		file.Close()
		return nil, errors.InvalidDisk.WrapError(err)
	}

	return &FileDevice{file: file, totalBlocks: totalBlocks}, nil
}

func (d *FileDevice) Count() (int, error) {
	return d.totalBlocks, nil
}

func (d *FileDevice) ReadBlock(index int, buf []byte) error {
	if err := checkBounds(index, d.totalBlocks, buf); err != nil {
		return err
	}

	_, err := d.file.ReadAt(buf, int64(index)*BlockSize)
	if err != nil && err != io.EOF {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

func (d *FileDevice) WriteBlock(index int, buf []byte) error {
	if err := checkBounds(index, d.totalBlocks, buf); err != nil {
		return err
	}

	if _, err := d.file.WriteAt(buf, int64(index)*BlockSize); err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

func (d *FileDevice) Close() error {
	if err := d.file.Close(); err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}
