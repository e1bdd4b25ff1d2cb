package e2fs

import (
	"encoding/binary"
	"fmt"
)

// fileType is the 4-bit file-type nibble held in the top bits of i_mode.
type fileType uint16

const (
	fileTypeFIFO       fileType = 0x1000
	fileTypeCharDevice fileType = 0x2000
	fileTypeDirectory  fileType = 0x4000
	fileTypeBlockDevice fileType = 0x6000
	fileTypeRegular    fileType = 0x8000
	fileTypeSymlink    fileType = 0xA000
	fileTypeSocket     fileType = 0xC000
	fileTypeMask       fileType = 0xF000
)

// Directory entry file_type byte values (ext2_dir_entry_2.file_type).
const (
	DirEntryUnknown  uint8 = 0
	DirEntryRegular  uint8 = 1
	DirEntryDir      uint8 = 2
	DirEntryCharDev  uint8 = 3
	DirEntryBlockDev uint8 = 4
	DirEntryFIFO     uint8 = 5
	DirEntrySocket   uint8 = 6
	DirEntrySymlink  uint8 = 7
)

const (
	// minInodeRecord is the portion of an on-disk inode record this tool
	// ever reads or writes; inode_size may reserve more (ext4-style extra
	// fields) but none of it is relevant to classic ext2 metadata repair.
	minInodeRecord = 128

	offMode       = 0x00
	offSize       = 0x04
	offLinksCount = 0x1A
	offBlock      = 0x28
	blockPtrCount = 15
	fastSymlinkMaxSize = 60
)

// Inode is the distilled inode: the fields the repair passes consult.
type Inode struct {
	Number     uint32
	Mode       uint16
	Size       uint32
	LinksCount uint16
	Block      [blockPtrCount]uint32
}

// IsDirectory reports whether this inode's type nibble is the directory type.
func (in *Inode) IsDirectory() bool {
	return fileType(in.Mode)&fileTypeMask == fileTypeDirectory
}

// IsFastSymlink reports whether this is a symlink whose target is stored
// inline in i_block, and therefore owns no data blocks of its own.
func (in *Inode) IsFastSymlink() bool {
	return fileType(in.Mode)&fileTypeMask == fileTypeSymlink && in.Size < fastSymlinkMaxSize
}

// imodeToFileType maps the i_mode type nibble to the directory-entry
// file_type code, falling through to "unknown" for anything unrecognized.
func imodeToFileType(mode uint16) uint8 {
	switch fileType(mode) & fileTypeMask {
	case fileTypeFIFO:
		return DirEntryFIFO
	case fileTypeCharDevice:
		return DirEntryCharDev
	case fileTypeDirectory:
		return DirEntryDir
	case fileTypeBlockDevice:
		return DirEntryBlockDev
	case fileTypeRegular:
		return DirEntryRegular
	case fileTypeSymlink:
		return DirEntrySymlink
	case fileTypeSocket:
		return DirEntrySocket
	default:
		return DirEntryUnknown
	}
}

// inodeAddr computes the byte offset, within the partition, of inode
// number n's record: inode_addr(n) = desc[(n-1)/ipg].bg_inode_table *
// block_size + ((n-1) mod ipg) * inode_size.
func (c *Context) inodeAddr(n uint32) (int64, error) {
	if n < 1 || n > c.Superblock.NumInodes {
		return 0, fmt.Errorf("inode %d out of range [1,%d]", n, c.Superblock.NumInodes)
	}
	ipg := c.Superblock.InodesPerGroup
	group := (n - 1) / ipg
	if int(group) >= len(c.GroupDescs) {
		return 0, fmt.Errorf("inode %d maps to out-of-range group %d", n, group)
	}
	indexInGroup := (n - 1) % ipg
	tableBlock := c.GroupDescs[group].InodeTable
	offset := int64(tableBlock)*int64(c.Superblock.BlockSize) + int64(indexInGroup)*int64(c.Superblock.InodeSize)
	return offset, nil
}

// ReadInode reads inode number n from the inode table.
func (c *Context) ReadInode(n uint32) (*Inode, error) {
	addr, err := c.inodeAddr(n)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, minInodeRecord)
	read, err := c.Storage.ReadAt(buf, addr)
	if err != nil {
		return nil, fmt.Errorf("reading inode %d: %w", n, err)
	}
	if read != minInodeRecord {
		return nil, fmt.Errorf("read only %d bytes of inode %d, wanted %d", read, n, minInodeRecord)
	}

	in := &Inode{
		Number:     n,
		Mode:       binary.LittleEndian.Uint16(buf[offMode:]),
		Size:       binary.LittleEndian.Uint32(buf[offSize:]),
		LinksCount: binary.LittleEndian.Uint16(buf[offLinksCount:]),
	}
	for i := 0; i < blockPtrCount; i++ {
		in.Block[i] = binary.LittleEndian.Uint32(buf[offBlock+i*4:])
	}
	return in, nil
}

// WriteInode writes back in.LinksCount (the only field any pass mutates) to
// inode in.Number's on-disk record.
func (c *Context) WriteInode(in *Inode) error {
	addr, err := c.inodeAddr(in.Number)
	if err != nil {
		return err
	}
	w, err := c.writable()
	if err != nil {
		return err
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], in.LinksCount)
	n, err := w.WriteAt(buf[:], addr+offLinksCount)
	if err != nil {
		return fmt.Errorf("writing inode %d links_count: %w", in.Number, err)
	}
	if n != len(buf) {
		return fmt.Errorf("wrote only %d bytes of inode %d links_count", n, in.Number)
	}
	return nil
}
