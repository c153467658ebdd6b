package blockdev

import (
	"io"

	"github.com/pmackle/ecsfs/errors"
	"github.com/xaionaro-go/bytesextra"
)

// MemoryDevice is a Device backed entirely by a byte slice in memory,
// exposed through bytesextra.NewReadWriteSeeker so the same offset/seek
// arithmetic used by FileDevice works unchanged against a buffer instead of
// an *os.File. It's useful for tests and for callers that want a disposable
// disk without touching the host filesystem; it is a constructor, not a
// disk-image creation command.
type MemoryDevice struct {
	stream      io.ReadWriteSeeker
	totalBlocks int
}

// NewMemoryDevice wraps data as a Device of len(data)/BlockSize blocks. data
// must be an exact multiple of BlockSize and is used directly (not copied),
// so the caller retains a handle to the raw bytes if it wants one.
func NewMemoryDevice(data []byte) (*MemoryDevice, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.InvalidDisk.WithMessage(
			"backing buffer size is not a multiple of the block size")
	}

	return &MemoryDevice{
		stream:      bytesextra.NewReadWriteSeeker(data),
		totalBlocks: len(data) / BlockSize,
	}, nil
}

// NewZeroedMemoryDevice allocates a fresh, zero-filled MemoryDevice of
// totalBlocks blocks.
func NewZeroedMemoryDevice(totalBlocks int) (*MemoryDevice, error) {
	return NewMemoryDevice(make([]byte, totalBlocks*BlockSize))
}

func (d *MemoryDevice) Count() (int, error) {
	return d.totalBlocks, nil
}

func (d *MemoryDevice) ReadBlock(index int, buf []byte) error {
	if err := checkBounds(index, d.totalBlocks, buf); err != nil {
		return err
	}

	if _, err := d.stream.Seek(int64(index)*BlockSize, io.SeekStart); err != nil {
		return errors.DiskError.WrapError(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

func (d *MemoryDevice) WriteBlock(index int, buf []byte) error {
	if err := checkBounds(index, d.totalBlocks, buf); err != nil {
		return err
	}

	if _, err := d.stream.Seek(int64(index)*BlockSize, io.SeekStart); err != nil {
		return errors.DiskError.WrapError(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

func (d *MemoryDevice) Close() error {
	return nil
}
