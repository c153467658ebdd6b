package ecsfs

import (
	"fmt"

	bitmap "github.com/boljen/go-bitmap"
	"github.com/pmackle/ecsfs/errors"
)

// The FAT allocator operates purely on the in-memory FAT buffer. Mutating
// callers are responsible for calling flushFAT once their whole operation
// is done; the allocator only marks the affected FAT blocks dirty.

// rebuildFreeMap derives the free-block bitmap and counter from the FAT.
// Entry 0 is reserved and never counts as free regardless of its value.
func (fs *FileSystem) rebuildFreeMap() {
	fs.freeMap = bitmap.New(int(fs.super.DataBlockCount))
	fs.freeBlocks = 0
	for i := 1; i < int(fs.super.DataBlockCount); i++ {
		if fs.fat[i] == 0 {
			fs.freeMap.Set(i, true)
			fs.freeBlocks++
		}
	}
}

// markFATDirty records that the FAT block containing entry index has
// unflushed changes.
func (fs *FileSystem) markFATDirty(index uint16) {
	fs.fatDirty.Set(int(index)/fatEntriesPerBlock, true)
}

// chainCorruption builds the error reported when a walk escapes the rules
// a well-formed chain must obey.
func chainCorruption(format string, args ...interface{}) error {
	return errors.Corruption.WithMessage(fmt.Sprintf(format, args...))
}

// chainList walks the chain starting at head and returns the data-block
// indices in file order. A head of FatEOC yields an empty chain. The walk
// is bounded by the size of the data region: a chain longer than that, or
// one that steps onto a free or out-of-range entry, is corruption.
func (fs *FileSystem) chainList(head uint16) ([]uint16, error) {
	if head == FatEOC {
		return nil, nil
	}

	chain := make([]uint16, 0, 8)
	for cur := head; cur != FatEOC; cur = fs.fat[cur] {
		if cur == 0 || int(cur) >= int(fs.super.DataBlockCount) {
			return nil, chainCorruption("chain points at invalid data block %d", cur)
		}
		if fs.fat[cur] == 0 {
			return nil, chainCorruption("chain runs into free data block %d", cur)
		}
		if len(chain) >= int(fs.super.DataBlockCount) {
			return nil, chainCorruption(
				"chain exceeds %d data blocks, assuming a cycle", fs.super.DataBlockCount)
		}
		chain = append(chain, cur)
	}
	return chain, nil
}

// chainFree releases every block in the chain rooted at head back to the
// free pool, including the final end-of-chain slot.
func (fs *FileSystem) chainFree(head uint16) error {
	chain, err := fs.chainList(head)
	if err != nil {
		return err
	}

	for _, idx := range chain {
		fs.fat[idx] = 0
		fs.freeMap.Set(int(idx), true)
		fs.freeBlocks++
		fs.markFATDirty(idx)
	}
	return nil
}

// chainExtend allocates the first free data block and links it onto the
// chain ending at tail. Pass FatEOC as tail to start a new chain; the
// caller then owns recording the returned index as the file's first block.
func (fs *FileSystem) chainExtend(tail uint16) (uint16, error) {
	if fs.freeBlocks == 0 {
		return 0, errors.OutOfSpace
	}

	// First-fit scan over the whole data region; index 0 is reserved. The
	// free counter above guarantees this finds something.
	for i := 1; i < int(fs.super.DataBlockCount); i++ {
		if !fs.freeMap.Get(i) {
			continue
		}

		idx := uint16(i)
		fs.fat[idx] = FatEOC
		fs.freeMap.Set(i, false)
		fs.freeBlocks--
		fs.markFATDirty(idx)

		if tail != FatEOC {
			fs.fat[tail] = idx
			fs.markFATDirty(tail)
		}
		return idx, nil
	}

	return 0, errors.OutOfSpace
}

// FreeBlocks returns the number of unallocated data blocks.
func (fs *FileSystem) FreeBlocks() (int, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	return fs.freeBlocks, nil
}
