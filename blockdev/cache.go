package blockdev

import (
	"github.com/boljen/go-bitmap"
	"github.com/pmackle/ecsfs/errors"
)

// Cached wraps a Device with a write-back cache of whole blocks, adapted
// from dargueta-disko's file_systems/common/blockcache package. It sits
// strictly below the Device interface the filesystem core consumes: it
// caches raw blocks for the storage backend's benefit (avoiding a host
// read/write syscall per block), not file data for the filesystem's
// benefit. The core's own in-memory copies of the FAT and root directory
// remain the only filesystem-level caching, per the on-disk format's
// non-goals.
type Cached struct {
	backing     Device
	totalBlocks int
	loaded      bitmap.Bitmap
	dirty       bitmap.Bitmap
	data        []byte
}

// NewCached wraps backing in a write-back cache. The entire backing device
// is addressable through the returned *Cached; nothing is read from backing
// until a block is first touched.
func NewCached(backing Device) (*Cached, error) {
	totalBlocks, err := backing.Count()
	if err != nil {
		return nil, err
	}

	return &Cached{
		backing:     backing,
		totalBlocks: totalBlocks,
		loaded:      bitmap.New(totalBlocks),
		dirty:       bitmap.New(totalBlocks),
		data:        make([]byte, totalBlocks*BlockSize),
	}, nil
}

func (c *Cached) Count() (int, error) {
	return c.totalBlocks, nil
}

func (c *Cached) ensureLoaded(index int) error {
	if c.loaded.Get(index) {
		return nil
	}

	buf := c.data[index*BlockSize : (index+1)*BlockSize]
	if err := c.backing.ReadBlock(index, buf); err != nil {
		return err
	}
	c.loaded.Set(index, true)
	return nil
}

func (c *Cached) ReadBlock(index int, buf []byte) error {
	if err := checkBounds(index, c.totalBlocks, buf); err != nil {
		return err
	}
	if err := c.ensureLoaded(index); err != nil {
		return err
	}

	copy(buf, c.data[index*BlockSize:(index+1)*BlockSize])
	return nil
}

func (c *Cached) WriteBlock(index int, buf []byte) error {
	if err := checkBounds(index, c.totalBlocks, buf); err != nil {
		return err
	}

	copy(c.data[index*BlockSize:(index+1)*BlockSize], buf)
	c.loaded.Set(index, true)
	c.dirty.Set(index, true)
	return nil
}

// Flush writes every dirty block back to the backing device and clears the
// dirty bitmap. It does not clear the loaded bitmap: the cached contents
// remain valid.
func (c *Cached) Flush() error {
	for i := 0; i < c.totalBlocks; i++ {
		if !c.dirty.Get(i) {
			continue
		}
		if err := c.backing.WriteBlock(i, c.data[i*BlockSize:(i+1)*BlockSize]); err != nil {
			return errors.DiskError.WrapError(err)
		}
		c.dirty.Set(i, false)
	}
	return nil
}

// Close flushes outstanding writes and closes the backing device.
func (c *Cached) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}
	return c.backing.Close()
}
