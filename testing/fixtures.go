// Package testing builds correctly-formatted disk images for tests to
// mount. It is test scaffolding shared with importers of this module, not a
// user-facing formatting tool: the filesystem itself has no format
// operation, so everything here writes the on-disk structures directly
// through the block device interface.
package testing

import (
	"encoding/binary"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"

	"github.com/pmackle/ecsfs"
	"github.com/pmackle/ecsfs/blockdev"
)

// Geometry pins down the shape of a fixture image. TotalBlocks covers the
// superblock, FATBlocks FAT blocks, the root directory block, and whatever
// remains as data blocks.
type Geometry struct {
	TotalBlocks int
	FATBlocks   int
}

// DataBlocks returns how many data blocks the geometry leaves room for.
func (g Geometry) DataBlocks() int {
	return g.TotalBlocks - 2 - g.FATBlocks
}

// validate fails the test immediately if the geometry can't describe a
// working image.
func (g Geometry) validate(t *testing.T) {
	t.Helper()
	require.GreaterOrEqual(t, g.FATBlocks, 1, "need at least one FAT block")
	require.GreaterOrEqual(t, g.DataBlocks(), 1, "geometry leaves no data blocks")
	require.LessOrEqual(t, g.TotalBlocks, 0xFFFF,
		"total block count must fit in the superblock's u16 field")
	require.GreaterOrEqual(t, g.FATBlocks*(ecsfs.BlockSize/2), g.DataBlocks(),
		"FAT is too small to address every data block")
}

// superblockBytes assembles the 4096-byte superblock image for g.
func superblockBytes(t *testing.T, g Geometry) []byte {
	t.Helper()

	buf := make([]byte, ecsfs.BlockSize)
	writer := bytewriter.New(buf)

	_, err := writer.Write([]byte(ecsfs.Signature))
	require.NoError(t, err)
	require.NoError(t, binary.Write(writer, binary.LittleEndian, uint16(g.TotalBlocks)))
	require.NoError(t, binary.Write(writer, binary.LittleEndian, uint16(1+g.FATBlocks)))
	require.NoError(t, binary.Write(writer, binary.LittleEndian, uint16(2+g.FATBlocks)))
	require.NoError(t, binary.Write(writer, binary.LittleEndian, uint16(g.DataBlocks())))
	require.NoError(t, binary.Write(writer, binary.LittleEndian, uint8(g.FATBlocks)))
	// The rest of the block is already zero padding.
	return buf
}

// Format lays a fresh, empty filesystem down on dev: superblock, a FAT
// whose entry 0 carries the reserved end-of-chain marker, and an all-free
// root directory. The device must have exactly g.TotalBlocks blocks.
func Format(t *testing.T, dev blockdev.Device, g Geometry) {
	t.Helper()
	g.validate(t)

	count, err := dev.Count()
	require.NoError(t, err)
	require.Equal(t, g.TotalBlocks, count, "device size disagrees with geometry")

	require.NoError(t, dev.WriteBlock(0, superblockBytes(t, g)))

	firstFATBlock := make([]byte, ecsfs.BlockSize)
	binary.LittleEndian.PutUint16(firstFATBlock, ecsfs.FatEOC)
	require.NoError(t, dev.WriteBlock(1, firstFATBlock))

	zero := make([]byte, ecsfs.BlockSize)
	for i := 1; i < g.FATBlocks; i++ {
		require.NoError(t, dev.WriteBlock(1+i, zero))
	}
	require.NoError(t, dev.WriteBlock(1+g.FATBlocks, zero))
}

// NewImage returns a freshly formatted in-memory device with the given
// geometry, ready to mount.
func NewImage(t *testing.T, g Geometry) *blockdev.MemoryDevice {
	t.Helper()

	dev, err := blockdev.NewZeroedMemoryDevice(g.TotalBlocks)
	require.NoError(t, err)
	Format(t, dev, g)
	return dev
}

// NewImageFile creates and formats a disk image file under the test's
// temporary directory and returns its path, for tests that need the
// file-backed device path instead of an in-memory one.
func NewImageFile(t *testing.T, g Geometry) string {
	t.Helper()

	path := t.TempDir() + "/disk.img"
	dev, err := blockdev.CreateFileDevice(path, g.TotalBlocks)
	require.NoError(t, err)
	Format(t, dev, g)
	require.NoError(t, dev.Close())
	return path
}

// MountNew formats a fresh in-memory image and mounts it, the common first
// line of most filesystem tests.
func MountNew(t *testing.T, g Geometry) *ecsfs.FileSystem {
	t.Helper()

	fs, err := ecsfs.Mount(NewImage(t, g))
	require.NoError(t, err)
	return fs
}

// CorruptSuperblock returns a freshly formatted in-memory image for g whose
// raw superblock block has had mutate applied, for tests that probe mount
// validation.
func CorruptSuperblock(t *testing.T, g Geometry, mutate func([]byte)) *blockdev.MemoryDevice {
	t.Helper()

	dev := NewImage(t, g)
	raw := make([]byte, ecsfs.BlockSize)
	require.NoError(t, dev.ReadBlock(0, raw))
	mutate(raw)
	require.NoError(t, dev.WriteBlock(0, raw))
	return dev
}

// SmallGeometry is a convenient tiny image: 16 data blocks behind a single
// FAT block.
var SmallGeometry = Geometry{TotalBlocks: 19, FATBlocks: 1}
