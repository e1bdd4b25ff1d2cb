package e2fs

import (
	"encoding/binary"
	"fmt"

	"github.com/fsimg/e2fsck/backend"
	"github.com/google/uuid"
)

const (
	// superblockOffset is the byte offset of the superblock within its partition.
	superblockOffset = 1024
	superblockSize    = 1024

	sbMagic   = 0xEF53
	sbMagicOffset = 0x38

	// offsets below are all relative to the start of the superblock record.
	offInodesCount    = 0x00
	offBlocksCount    = 0x04
	offFirstDataBlock = 0x14
	offLogBlockSize   = 0x18
	offBlocksPerGroup = 0x20
	offInodesPerGroup = 0x28
	offRevLevel       = 0x4C
	offInodeSize      = 0x58
	offUUID           = 0x68
	uuidLen           = 16

	// ext2RevOld is the "good old rev" superblock revision that predates
	// the dynamic fields (s_inode_size among them); its inode size and
	// first non-reserved inode are always the ext2 defaults.
	ext2RevOld                  = 0
	ext2GoodOldInodeSize uint16 = 128
)

// Superblock is the distilled superblock: the fields the repair passes
// actually consult. Immutable after Load.
type Superblock struct {
	BlockSize       uint32
	InodeSize       uint16
	NumBlocks       uint32
	BlocksPerGroup  uint32
	NumInodes       uint32
	InodesPerGroup  uint32
	NumGroups       uint32
	FirstDataBlock  uint32
	UUID            uuid.UUID
}

// LoadSuperblock reads and validates the 1024-byte superblock at the fixed
// partition offset 1024.
func LoadSuperblock(f backend.File) (*Superblock, error) {
	buf := make([]byte, superblockSize)
	n, err := f.ReadAt(buf, superblockOffset)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if n != superblockSize {
		return nil, fmt.Errorf("read only %d bytes of superblock, wanted %d", n, superblockSize)
	}

	magic := binary.LittleEndian.Uint16(buf[sbMagicOffset:])
	if magic != sbMagic {
		return nil, fmt.Errorf("%w: magic 0x%04x", ErrNotExt2, magic)
	}

	logBlockSize := binary.LittleEndian.Uint32(buf[offLogBlockSize:])
	blockSize := uint32(1024) << logBlockSize

	numBlocks := binary.LittleEndian.Uint32(buf[offBlocksCount:])
	blocksPerGroup := binary.LittleEndian.Uint32(buf[offBlocksPerGroup:])
	numInodes := binary.LittleEndian.Uint32(buf[offInodesCount:])
	inodesPerGroup := binary.LittleEndian.Uint32(buf[offInodesPerGroup:])
	firstDataBlock := binary.LittleEndian.Uint32(buf[offFirstDataBlock:])

	revLevel := binary.LittleEndian.Uint32(buf[offRevLevel:])
	inodeSize := ext2GoodOldInodeSize
	if revLevel != ext2RevOld {
		inodeSize = binary.LittleEndian.Uint16(buf[offInodeSize:])
	}

	if blocksPerGroup == 0 {
		return nil, fmt.Errorf("superblock reports zero blocks_per_group")
	}
	numGroups := (numBlocks + blocksPerGroup - 1) / blocksPerGroup

	var id uuid.UUID
	copy(id[:], buf[offUUID:offUUID+uuidLen])

	return &Superblock{
		BlockSize:      blockSize,
		InodeSize:      inodeSize,
		NumBlocks:      numBlocks,
		BlocksPerGroup: blocksPerGroup,
		NumInodes:      numInodes,
		InodesPerGroup: inodesPerGroup,
		NumGroups:      numGroups,
		FirstDataBlock: firstDataBlock,
		UUID:           id,
	}, nil
}
