package ecsfs

import (
	"github.com/pmackle/ecsfs/errors"
)

// absBlock converts a FAT data-block index to an absolute device block.
func (fs *FileSystem) absBlock(dataIndex uint16) int {
	return int(fs.super.DataBlockStart) + int(dataIndex)
}

// Read copies up to len(buf) bytes from fd's cursor position into buf and
// advances the cursor by the amount read. Reads stop at end of file; a
// cursor already at the end reads 0 bytes. Reading never changes on-disk
// state.
func (fs *FileSystem) Read(fd int, buf []byte) (int, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}

	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}

	ent := &fs.root[h.dirIndex]
	if ent.FirstDataBlock == FatEOC {
		return 0, nil
	}

	off := int(h.offset)
	eff := len(buf)
	if remaining := int(ent.FileSize) - off; eff > remaining {
		eff = remaining
	}
	if eff <= 0 {
		return 0, nil
	}

	chain, err := fs.chainList(ent.FirstDataBlock)
	if err != nil {
		return 0, err
	}
	if off+eff > len(chain)*BlockSize {
		return 0, errors.Corruption.WithMessage(
			"file size exceeds what its chain can hold")
	}

	// Stream block by block: the first and last blocks may be partial, so
	// every block goes through the scratch buffer and gets sliced.
	scratch := make([]byte, BlockSize)
	copied := 0
	for copied < eff {
		pos := off + copied
		within := pos % BlockSize
		n := BlockSize - within
		if n > eff-copied {
			n = eff - copied
		}

		abs := fs.absBlock(chain[pos/BlockSize])
		if err := fs.device.ReadBlock(abs, scratch); err != nil {
			return copied, errors.DiskError.WrapError(err)
		}
		copy(buf[copied:copied+n], scratch[within:within+n])
		copied += n
	}

	h.offset += uint32(eff)
	return eff, nil
}

// Write copies up to len(buf) bytes from buf into the file at fd's cursor
// position, allocating data blocks as the file grows. When the data region
// runs out after at least one new block was allocated, the transfer is
// truncated to what fit; a write that needs to grow the file but gets no new
// block at all transfers nothing. Either way the file's size and chain
// reflect exactly the bytes that made it to disk. The number of bytes
// written is returned.
//
// The cursor is not advanced: a second write through the same
// descriptor lands at the same offset unless the caller seeks in between.
// This preserves the behavior of the system this format comes from; use
// Lseek (or the driver package's File, which layers stream semantics on
// top) for sequential writing.
func (fs *FileSystem) Write(fd int, buf []byte) (int, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}

	h, err := fs.handleAt(fd)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	ent := &fs.root[h.dirIndex]
	off := int(h.offset)

	chain, err := fs.chainList(ent.FirstDataBlock)
	if err != nil {
		return 0, err
	}
	oldBlocks := len(chain)
	rootDirty := false

	// Grow the chain until it covers the last byte of the write, stopping
	// early if the free pool runs dry.
	need := (off + len(buf) + BlockSize - 1) / BlockSize
	for len(chain) < need {
		tail := FatEOC
		if len(chain) > 0 {
			tail = chain[len(chain)-1]
		}

		idx, err := fs.chainExtend(tail)
		if err != nil {
			break
		}
		if len(chain) == 0 {
			ent.FirstDataBlock = idx
			rootDirty = true
		}
		chain = append(chain, idx)
	}

	// A write that needed to grow the file but got no new block at all
	// transfers nothing, even if earlier blocks had room for a prefix.
	if need > oldBlocks && len(chain) == oldBlocks {
		return 0, nil
	}

	written := len(buf)
	if avail := len(chain)*BlockSize - off; written > avail {
		written = avail
	}

	scratch := make([]byte, BlockSize)
	copied := 0
	for copied < written {
		pos := off + copied
		within := pos % BlockSize
		n := BlockSize - within
		if n > written-copied {
			n = written - copied
		}

		blockIndex := pos / BlockSize
		abs := fs.absBlock(chain[blockIndex])

		if n == BlockSize {
			// Whole-block write, no read needed.
			if err := fs.device.WriteBlock(abs, buf[copied:copied+n]); err != nil {
				return copied, errors.DiskError.WrapError(err)
			}
			copied += n
			continue
		}

		// Partial block: preserve the bytes around the slice. Blocks that
		// existed before this call hold file data and must be read first;
		// freshly allocated tail blocks are logically zero.
		if blockIndex < oldBlocks {
			if err := fs.device.ReadBlock(abs, scratch); err != nil {
				return copied, errors.DiskError.WrapError(err)
			}
		} else {
			clear(scratch)
		}
		copy(scratch[within:within+n], buf[copied:copied+n])
		if err := fs.device.WriteBlock(abs, scratch); err != nil {
			return copied, errors.DiskError.WrapError(err)
		}
		copied += n
	}

	if newEnd := uint32(off + written); newEnd > ent.FileSize {
		ent.FileSize = newEnd
		rootDirty = true
	}

	// Metadata goes out after the data so the last durable state is
	// self-consistent.
	if err := fs.flushFAT(); err != nil {
		return written, err
	}
	if rootDirty {
		if err := fs.flushRootDir(); err != nil {
			return written, err
		}
	}
	return written, nil
}
