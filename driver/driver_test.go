package driver_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackle/ecsfs"
	"github.com/pmackle/ecsfs/driver"
	fstesting "github.com/pmackle/ecsfs/testing"
)

// mountedDriver mounts a fresh file-backed image and returns the driver
// plus the buffer capturing its diagnostic output.
func mountedDriver(t *testing.T, g fstesting.Geometry) (*driver.Driver, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	d := driver.NewWithOutput(out)
	require.Zero(t, d.Mount(fstesting.NewImageFile(t, g)))
	t.Cleanup(func() { d.Umount() })
	return d, out
}

func TestMountLifecycle(t *testing.T) {
	d := driver.New()
	assert.Equal(t, -1, d.Mount("/no/such/image"))
	assert.Equal(t, -1, d.Umount(), "nothing mounted yet")

	path := fstesting.NewImageFile(t, fstesting.SmallGeometry)
	require.Zero(t, d.Mount(path))
	assert.Equal(t, -1, d.Mount(path), "double mount must fail")
	assert.Zero(t, d.Umount())
	assert.Equal(t, -1, d.Create("late"), "unmounted driver rejects everything")
}

func TestIntegerConventionRoundTrip(t *testing.T) {
	d, _ := mountedDriver(t, fstesting.SmallGeometry)

	require.Zero(t, d.Create("hello.txt"))
	fd := d.Open("hello.txt")
	assert.Equal(t, 1, fd)

	assert.Equal(t, 2, d.Write(fd, []byte("Hi")))
	assert.Equal(t, 2, d.Stat(fd))
	require.Zero(t, d.Lseek(fd, 0))

	buf := make([]byte, 16)
	assert.Equal(t, 2, d.Read(fd, buf))
	assert.Equal(t, "Hi", string(buf[:2]))

	assert.Equal(t, -1, d.Delete("hello.txt"), "file is still open")
	require.Zero(t, d.Close(fd))
	assert.Zero(t, d.Delete("hello.txt"))
	assert.Equal(t, -1, d.Open("hello.txt"))
}

func TestInfoAndLsGoToConfiguredWriter(t *testing.T) {
	d, out := mountedDriver(t, fstesting.SmallGeometry)

	require.Zero(t, d.Create("seen.txt"))
	require.Zero(t, d.Info())
	require.Zero(t, d.Ls())

	assert.Contains(t, out.String(), "FS Info:")
	assert.Contains(t, out.String(), "rdir_free_ratio=127/128")
	assert.Contains(t, out.String(), "file: seen.txt, size: 0, data_blk: 65535")
}

func TestFileStreamSemantics(t *testing.T) {
	d, _ := mountedDriver(t, fstesting.SmallGeometry)
	require.Zero(t, d.Create("stream.bin"))

	f, err := d.OpenFile("stream.bin")
	require.NoError(t, err)
	assert.Equal(t, "stream.bin", f.Name())

	// Unlike raw descriptors, consecutive writes append.
	_, err = f.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = f.Write([]byte("world"))
	require.NoError(t, err)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, 11, size)

	pos, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Zero(t, pos)

	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))

	pos, err = f.Seek(-5, io.SeekEnd)
	require.NoError(t, err)
	assert.EqualValues(t, 6, pos)
	got, err = io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))

	require.NoError(t, f.Close())
}

func TestFileShortWrite(t *testing.T) {
	tiny := fstesting.Geometry{TotalBlocks: 5, FATBlocks: 1}
	d, _ := mountedDriver(t, tiny)
	require.Zero(t, d.Create("tight"))

	f, err := d.OpenFile("tight")
	require.NoError(t, err)

	n, err := f.Write(make([]byte, ecsfs.BlockSize+1))
	assert.Equal(t, ecsfs.BlockSize, n)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	require.NoError(t, f.Close())
}
