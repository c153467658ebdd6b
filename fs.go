package ecsfs

import (
	"fmt"
	"io"

	bitmap "github.com/boljen/go-bitmap"
	"github.com/pmackle/ecsfs/blockdev"
	"github.com/pmackle/ecsfs/errors"
)

// FileSystem is a mounted filesystem instance. It owns the in-memory copies
// of the superblock, FAT, and root directory, plus the file descriptor
// table. Everything on-disk is reachable only through the block device it
// was mounted from.
//
// A FileSystem is single-threaded by contract: no operation on it may run
// concurrently with another.
type FileSystem struct {
	device blockdev.Device

	super rawSuperblock
	fat   []uint16
	root  [FileMaxCount]rawDirEntry

	// freeMap mirrors which data-block indices have a zero FAT entry, and
	// freeBlocks counts them. The FAT buffer itself stays authoritative;
	// these are rebuilt from it at mount and kept in lockstep on every
	// allocation and free.
	freeMap    bitmap.Bitmap
	freeBlocks int

	// fatDirty marks FAT blocks with unflushed in-memory changes.
	fatDirty bitmap.Bitmap

	handles   [OpenMaxCount]handle
	openCount int
}

// Mount reads and validates the filesystem on dev and returns an aggregate
// for operating on it. The device is owned by the returned FileSystem until
// Unmount; on failure the device is left open and still belongs to the
// caller.
func Mount(dev blockdev.Device) (*FileSystem, error) {
	deviceBlocks, err := dev.Count()
	if err != nil {
		return nil, errors.InvalidDisk.WrapError(err)
	}
	if deviceBlocks < 1 {
		return nil, errors.InvalidDisk.WithMessage("device has no blocks")
	}

	blockBuf := make([]byte, BlockSize)
	if err := dev.ReadBlock(0, blockBuf); err != nil {
		return nil, errors.InvalidDisk.WrapError(err)
	}

	sb, err := parseSuperblock(blockBuf, deviceBlocks)
	if err != nil {
		return nil, err
	}

	fs := &FileSystem{
		device:   dev,
		super:    sb,
		fat:      make([]uint16, int(sb.FATBlockCount)*fatEntriesPerBlock),
		fatDirty: bitmap.New(int(sb.FATBlockCount)),
	}

	for i := 0; i < int(sb.FATBlockCount); i++ {
		if err := dev.ReadBlock(1+i, blockBuf); err != nil {
			return nil, errors.DiskError.WrapError(err)
		}
		decodeFATBlock(blockBuf, fs.fat[i*fatEntriesPerBlock:(i+1)*fatEntriesPerBlock])
	}
	if fs.fat[0] != FatEOC {
		return nil, errors.InvalidDisk.WithMessage(
			"FAT entry 0 is not the reserved end-of-chain marker")
	}

	if err := dev.ReadBlock(int(sb.RootDirBlock), blockBuf); err != nil {
		return nil, errors.DiskError.WrapError(err)
	}
	if fs.root, err = parseRootDir(blockBuf); err != nil {
		return nil, err
	}

	fs.rebuildFreeMap()
	return fs, nil
}

// MountImage opens the disk image file at path and mounts it.
func MountImage(path string) (*FileSystem, error) {
	dev, err := blockdev.OpenFileDevice(path)
	if err != nil {
		return nil, err
	}

	fs, err := Mount(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return fs, nil
}

// mounted returns an error unless fs is usable.
func (fs *FileSystem) mounted() error {
	if fs == nil || fs.device == nil {
		return errors.NotMounted
	}
	return nil
}

// Unmount writes back any pending FAT and root directory changes, closes
// the block device, and poisons the aggregate so further operations fail
// with NotMounted. It refuses to run while any descriptor is open.
func (fs *FileSystem) Unmount() error {
	if err := fs.mounted(); err != nil {
		return err
	}
	if fs.openCount > 0 {
		return errors.HandlesOpen.WithMessage(
			fmt.Sprintf("%d descriptors still open", fs.openCount))
	}

	if err := fs.flushFAT(); err != nil {
		return err
	}
	if err := fs.flushRootDir(); err != nil {
		return err
	}
	if err := fs.device.Close(); err != nil {
		return errors.DiskError.WrapError(err)
	}

	*fs = FileSystem{}
	return nil
}

// Info writes the diagnostic summary of the mounted filesystem to w: an
// "FS Info:" header followed by seven key=value lines.
func (fs *FileSystem) Info(w io.Writer) error {
	if err := fs.mounted(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w,
		"FS Info:\n"+
			"total_blk_count=%d\n"+
			"fat_blk_count=%d\n"+
			"rdir_blk=%d\n"+
			"data_blk=%d\n"+
			"data_blk_count=%d\n"+
			"fat_free_ratio=%d/%d\n"+
			"rdir_free_ratio=%d/%d\n",
		fs.super.TotalBlocks,
		fs.super.FATBlockCount,
		fs.super.RootDirBlock,
		fs.super.DataBlockStart,
		fs.super.DataBlockCount,
		fs.freeBlocks, fs.super.DataBlockCount,
		fs.freeDirSlots(), FileMaxCount)
	if err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

// freeDirSlots counts unoccupied root directory entries.
func (fs *FileSystem) freeDirSlots() int {
	free := 0
	for i := range fs.root {
		if fs.root[i].isFree() {
			free++
		}
	}
	return free
}

// flushRootDir writes the in-memory root directory back to its block.
func (fs *FileSystem) flushRootDir() error {
	err := fs.device.WriteBlock(int(fs.super.RootDirBlock), serializeRootDir(&fs.root))
	if err != nil {
		return errors.DiskError.WrapError(err)
	}
	return nil
}

// flushFAT writes back every FAT block marked dirty and clears the marks.
func (fs *FileSystem) flushFAT() error {
	blockBuf := make([]byte, BlockSize)
	for i := 0; i < int(fs.super.FATBlockCount); i++ {
		if !fs.fatDirty.Get(i) {
			continue
		}
		encodeFATBlock(fs.fat[i*fatEntriesPerBlock:(i+1)*fatEntriesPerBlock], blockBuf)
		if err := fs.device.WriteBlock(1+i, blockBuf); err != nil {
			return errors.DiskError.WrapError(err)
		}
		fs.fatDirty.Set(i, false)
	}
	return nil
}
