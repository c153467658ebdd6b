// Package blockdev provides the narrow block device abstraction the
// filesystem core consumes: open/close/count and fixed-size block
// read/write. The core never reaches past this interface to touch a
// file, a byte slice, or anything else directly.
package blockdev

import (
	"fmt"

	"github.com/pmackle/ecsfs/errors"
)

// BlockSize is the fixed size, in bytes, of every block exchanged through
// a Device. The filesystem on-disk format is defined entirely in terms of
// this constant; it is not configurable.
const BlockSize = 4096

// Device is a fixed-size block device: an array of BlockSize-byte blocks,
// indexed from 0, that can be read and written a whole block at a time.
// Implementations are not required to be safe for concurrent use.
type Device interface {
	// Count returns the total number of blocks on the device.
	Count() (int, error)

	// ReadBlock fills buf, which must be exactly BlockSize bytes long, with
	// the contents of block index.
	ReadBlock(index int, buf []byte) error

	// WriteBlock writes buf, which must be exactly BlockSize bytes long, to
	// block index.
	WriteBlock(index int, buf []byte) error

	// Close releases any resources held by the device. It is an error to use
	// a Device after Close returns.
	Close() error
}

// checkBounds validates a block index and buffer length shared by both
// ReadBlock and WriteBlock implementations.
func checkBounds(index, totalBlocks int, buf []byte) error {
	if index < 0 || index >= totalBlocks {
		return errors.DiskError.WithMessage(
			fmt.Sprintf("block index %d not in range [0, %d)", index, totalBlocks))
	}
	if len(buf) != BlockSize {
		return errors.DiskError.WithMessage(
			fmt.Sprintf("buffer must be exactly %d bytes, got %d", BlockSize, len(buf)))
	}
	return nil
}
