package ecsfs_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackle/ecsfs"
	"github.com/pmackle/ecsfs/errors"
	fstesting "github.com/pmackle/ecsfs/testing"
)

func TestCreateAndList(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	require.NoError(t, fs.Create("alpha"))
	require.NoError(t, fs.Create("beta.txt"))

	out := &bytes.Buffer{}
	require.NoError(t, fs.List(out))
	assert.Equal(t,
		"FS Ls:\n"+
			"file: alpha, size: 0, data_blk: 65535\n"+
			"file: beta.txt, size: 0, data_blk: 65535\n",
		out.String())
}

func TestCreateRejectsDuplicates(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	require.NoError(t, fs.Create("twice"))
	assert.ErrorIs(t, fs.Create("twice"), errors.Exists)
}

func TestCreateValidatesNames(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)

	assert.ErrorIs(t, fs.Create(""), errors.InvalidName)
	assert.ErrorIs(t, fs.Create(strings.Repeat("x", ecsfs.FilenameLen)),
		errors.InvalidName, "a name must leave room for its NUL terminator")
	assert.ErrorIs(t, fs.Create("bad\x00name"), errors.InvalidName)

	// 15 bytes plus the NUL exactly fills the field.
	assert.NoError(t, fs.Create(strings.Repeat("x", ecsfs.FilenameLen-1)))
}

func TestCreateFillsDirectory(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)

	for i := 0; i < ecsfs.FileMaxCount; i++ {
		require.NoError(t, fs.Create(fmt.Sprintf("f%03d", i)))
	}
	assert.ErrorIs(t, fs.Create("straw"), errors.DirFull)

	// Deleting any file frees its slot for reuse.
	require.NoError(t, fs.Delete("f064"))
	assert.NoError(t, fs.Create("straw"))
}

func TestDeleteUnknownFile(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	assert.ErrorIs(t, fs.Delete("ghost"), errors.NotFound)
}

func TestDeleteFreesBlocks(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	require.NoError(t, fs.Create("fat.bin"))

	fd, err := fs.Open("fat.bin")
	require.NoError(t, err)
	_, err = fs.Write(fd, make([]byte, 3*ecsfs.BlockSize))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	free, err := fs.FreeBlocks()
	require.NoError(t, err)
	require.Equal(t, 12, free)

	require.NoError(t, fs.Delete("fat.bin"))
	free, err = fs.FreeBlocks()
	require.NoError(t, err)
	assert.Equal(t, 15, free)
}

// Delete-while-open, then close, delete, and reopen: the busy check and the
// emptiness of a recreated file.
func TestDeleteLifecycle(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	require.NoError(t, fs.Create("a"))

	fd, err := fs.Open("a")
	require.NoError(t, err)
	assert.ErrorIs(t, fs.Delete("a"), errors.FileBusy)

	require.NoError(t, fs.Close(fd))
	require.NoError(t, fs.Delete("a"))

	_, err = fs.Open("a")
	assert.ErrorIs(t, err, errors.NotFound)
}

func TestRecreatedFileIsEmpty(t *testing.T) {
	fs := fstesting.MountNew(t, fstesting.SmallGeometry)
	require.NoError(t, fs.Create("reborn"))

	fd, err := fs.Open("reborn")
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("old contents"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	require.NoError(t, fs.Delete("reborn"))
	require.NoError(t, fs.Create("reborn"))

	fd, err = fs.Open("reborn")
	require.NoError(t, err)
	size, err := fs.Stat(fd)
	require.NoError(t, err)
	assert.Zero(t, size)

	n, err := fs.Read(fd, make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, fs.Close(fd))
}
