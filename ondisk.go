package ecsfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pmackle/ecsfs/errors"
)

// rawSuperblock is the exact on-disk layout of block 0. All multi-byte
// integers are little-endian; the padding fills the structure out to one
// full block.
type rawSuperblock struct {
	Signature      [8]byte
	TotalBlocks    uint16
	RootDirBlock   uint16
	DataBlockStart uint16
	DataBlockCount uint16
	FATBlockCount  uint8
	Padding        [4079]byte
}

// rawDirEntry is the exact on-disk layout of one root directory slot, 32
// bytes. A slot is free iff the first filename byte is NUL.
type rawDirEntry struct {
	Filename       [FilenameLen]byte
	FileSize       uint32
	FirstDataBlock uint16
	Padding        [10]byte
}

// isFree reports whether the slot holds no file.
func (ent *rawDirEntry) isFree() bool {
	return ent.Filename[0] == 0
}

// name returns the slot's filename as a Go string, without the NUL padding.
func (ent *rawDirEntry) name() string {
	n := bytes.IndexByte(ent.Filename[:], 0)
	if n < 0 {
		n = FilenameLen
	}
	return string(ent.Filename[:n])
}

// parseSuperblock decodes and validates block 0. deviceBlocks is the block
// count the device itself reports; it must agree with the superblock. All
// validation failures are collected so a caller sees every problem with a
// bad image at once, not just the first.
func parseSuperblock(raw []byte, deviceBlocks int) (rawSuperblock, error) {
	var sb rawSuperblock
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &sb); err != nil {
		return sb, errors.InvalidDisk.WrapError(err)
	}

	var result *multierror.Error
	if string(sb.Signature[:]) != Signature {
		result = multierror.Append(result, fmt.Errorf(
			"bad signature: expected %q, got %q", Signature, sb.Signature[:]))
	}
	if int(sb.TotalBlocks) != deviceBlocks {
		result = multierror.Append(result, fmt.Errorf(
			"superblock says %d total blocks but the device has %d",
			sb.TotalBlocks, deviceBlocks))
	}
	if sb.FATBlockCount < 1 {
		result = multierror.Append(result,
			fmt.Errorf("FAT must span at least one block"))
	}
	if sb.DataBlockCount < 1 {
		result = multierror.Append(result,
			fmt.Errorf("data region must span at least one block"))
	}
	if int(sb.RootDirBlock) != 1+int(sb.FATBlockCount) {
		result = multierror.Append(result, fmt.Errorf(
			"root directory block is %d, expected %d (immediately after the FAT)",
			sb.RootDirBlock, 1+int(sb.FATBlockCount)))
	}
	if int(sb.DataBlockStart) != int(sb.RootDirBlock)+1 {
		result = multierror.Append(result, fmt.Errorf(
			"first data block is %d, expected %d (immediately after the root directory)",
			sb.DataBlockStart, int(sb.RootDirBlock)+1))
	}
	if int(sb.TotalBlocks) != 2+int(sb.FATBlockCount)+int(sb.DataBlockCount) {
		result = multierror.Append(result, fmt.Errorf(
			"block counts don't add up: 1 superblock + %d FAT + 1 root directory + %d data != %d total",
			sb.FATBlockCount, sb.DataBlockCount, sb.TotalBlocks))
	}
	if int(sb.FATBlockCount)*fatEntriesPerBlock < int(sb.DataBlockCount) {
		result = multierror.Append(result, fmt.Errorf(
			"%d FAT blocks hold %d entries, too few for %d data blocks",
			sb.FATBlockCount, int(sb.FATBlockCount)*fatEntriesPerBlock,
			sb.DataBlockCount))
	}

	if err := result.ErrorOrNil(); err != nil {
		return sb, errors.InvalidDisk.WrapError(err)
	}
	return sb, nil
}

// decodeFATBlock unpacks one block's worth of little-endian u16 FAT entries
// into dst, which must hold fatEntriesPerBlock entries.
func decodeFATBlock(raw []byte, dst []uint16) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
}

// encodeFATBlock packs fatEntriesPerBlock entries from src into raw.
func encodeFATBlock(src []uint16, raw []byte) {
	for i, v := range src {
		binary.LittleEndian.PutUint16(raw[i*2:], v)
	}
}

// parseRootDir decodes the root directory block into its 128 fixed slots.
func parseRootDir(raw []byte) ([FileMaxCount]rawDirEntry, error) {
	var dir [FileMaxCount]rawDirEntry
	err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &dir)
	if err != nil {
		return dir, errors.InvalidDisk.WrapError(err)
	}
	return dir, nil
}

// serializeRootDir encodes the 128 slots back into one block image.
func serializeRootDir(dir *[FileMaxCount]rawDirEntry) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockSize))
	// Writing fixed-width structs to a Buffer can't fail.
	binary.Write(buf, binary.LittleEndian, dir)
	return buf.Bytes()
}
