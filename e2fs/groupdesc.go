package e2fs

import (
	"encoding/binary"
	"fmt"

	"github.com/fsimg/e2fsck/backend"
)

const (
	// groupDescTableOffset is the byte offset of the group descriptor
	// table within its partition: immediately after the superblock's block.
	groupDescTableOffset = 2048
	groupDescSize        = 32

	offBlockBitmap = 0x00
	offInodeBitmap = 0x04
	offInodeTable  = 0x08
)

// GroupDescriptor is the distilled block group descriptor: the block
// indices (within the partition) of this group's bitmaps and inode table.
type GroupDescriptor struct {
	BlockBitmap uint32
	InodeBitmap uint32
	InodeTable  uint32
}

// LoadGroupDescriptors reads the num_groups-long descriptor table that
// immediately follows the superblock.
func LoadGroupDescriptors(f backend.File, numGroups uint32) ([]GroupDescriptor, error) {
	size := int(numGroups) * groupDescSize
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, groupDescTableOffset)
	if err != nil {
		return nil, fmt.Errorf("reading group descriptor table: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("read only %d bytes of group descriptor table, wanted %d", n, size)
	}

	table := make([]GroupDescriptor, numGroups)
	for g := range table {
		rec := buf[g*groupDescSize : (g+1)*groupDescSize]
		table[g] = GroupDescriptor{
			BlockBitmap: binary.LittleEndian.Uint32(rec[offBlockBitmap:]),
			InodeBitmap: binary.LittleEndian.Uint32(rec[offInodeBitmap:]),
			InodeTable:  binary.LittleEndian.Uint32(rec[offInodeTable:]),
		}
	}
	return table, nil
}
