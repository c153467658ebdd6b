package blockdev_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackle/ecsfs/blockdev"
	"github.com/pmackle/ecsfs/errors"
)

func filledBlock(b byte) []byte {
	return bytes.Repeat([]byte{b}, blockdev.BlockSize)
}

func TestMemoryDeviceRoundTrip(t *testing.T) {
	dev, err := blockdev.NewZeroedMemoryDevice(4)
	require.NoError(t, err)

	count, err := dev.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.NoError(t, dev.WriteBlock(2, filledBlock(0xAA)))

	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(2, buf))
	assert.Equal(t, filledBlock(0xAA), buf)
	require.NoError(t, dev.ReadBlock(1, buf))
	assert.Equal(t, filledBlock(0x00), buf, "neighboring blocks stay untouched")
}

func TestMemoryDeviceRejectsBadGeometry(t *testing.T) {
	_, err := blockdev.NewMemoryDevice(make([]byte, blockdev.BlockSize+1))
	assert.ErrorIs(t, err, errors.InvalidDisk)
}

func TestDeviceBoundsChecks(t *testing.T) {
	dev, err := blockdev.NewZeroedMemoryDevice(2)
	require.NoError(t, err)

	buf := make([]byte, blockdev.BlockSize)
	assert.ErrorIs(t, dev.ReadBlock(-1, buf), errors.DiskError)
	assert.ErrorIs(t, dev.ReadBlock(2, buf), errors.DiskError)
	assert.ErrorIs(t, dev.WriteBlock(0, buf[:100]), errors.DiskError,
		"short buffers are refused, not padded")
}

func TestFileDevicePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	dev, err := blockdev.CreateFileDevice(path, 3)
	require.NoError(t, err)
	require.NoError(t, dev.WriteBlock(1, filledBlock(0x5C)))
	require.NoError(t, dev.Close())

	dev, err = blockdev.OpenFileDevice(path)
	require.NoError(t, err)
	count, err := dev.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.ReadBlock(1, buf))
	assert.Equal(t, filledBlock(0x5C), buf)
	require.NoError(t, dev.ReadBlock(2, buf))
	assert.Equal(t, filledBlock(0x00), buf, "created devices start zeroed")
	require.NoError(t, dev.Close())
}

func TestOpenFileDeviceErrors(t *testing.T) {
	_, err := blockdev.OpenFileDevice(filepath.Join(t.TempDir(), "missing.img"))
	assert.ErrorIs(t, err, errors.InvalidDisk)
}

func TestCachedWritesBackOnFlush(t *testing.T) {
	backing, err := blockdev.NewZeroedMemoryDevice(4)
	require.NoError(t, err)

	cached, err := blockdev.NewCached(backing)
	require.NoError(t, err)
	require.NoError(t, cached.WriteBlock(1, filledBlock(0x11)))

	// The write is visible through the cache but hasn't reached the
	// backing device yet.
	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, cached.ReadBlock(1, buf))
	assert.Equal(t, filledBlock(0x11), buf)
	require.NoError(t, backing.ReadBlock(1, buf))
	assert.Equal(t, filledBlock(0x00), buf)

	require.NoError(t, cached.Flush())
	require.NoError(t, backing.ReadBlock(1, buf))
	assert.Equal(t, filledBlock(0x11), buf)
}

func TestCachedLoadsLazily(t *testing.T) {
	backing, err := blockdev.NewZeroedMemoryDevice(4)
	require.NoError(t, err)
	require.NoError(t, backing.WriteBlock(3, filledBlock(0x77)))

	cached, err := blockdev.NewCached(backing)
	require.NoError(t, err)

	buf := make([]byte, blockdev.BlockSize)
	require.NoError(t, cached.ReadBlock(3, buf))
	assert.Equal(t, filledBlock(0x77), buf, "first read pulls from the backing device")
}
