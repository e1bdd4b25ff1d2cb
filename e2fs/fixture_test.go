package e2fs

import (
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/fsimg/e2fsck/backend"
	"github.com/fsimg/e2fsck/partition"
	"github.com/fsimg/e2fsck/testhelper"
	"github.com/sirupsen/logrus"
)

// Synthetic single-group image geometry shared by every test in this
// package: 64 blocks of 1024 bytes, 32 inodes, group 0 holding its own
// backup superblock/descriptor pair at blocks 1-2.
const (
	fxBlockSize      = 1024
	fxBlocksPerGroup = 64
	fxInodesPerGroup = 32
	fxInodeSize      = 128
	fxNumBlocks      = 64
	fxNumInodes      = 32
	fxBlockBitmapBlk = 3
	fxInodeBitmapBlk = 4
	fxInodeTableBlk  = 5
	fxRootDataBlk    = 9
	fxLostFoundBlk   = 10

	fxRootInode       = 2
	fxLostFoundInode  = 11
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	buf []byte
}

// newFixture lays down a minimal but complete superblock and group
// descriptor table, then wires root (inode 2) and /lost+found (inode 11) as
// a two-entry directory tree so resolveLostFound and WalkDirectory have
// something real to walk.
func newFixture() *fixture {
	fx := &fixture{buf: make([]byte, fxNumBlocks*fxBlockSize)}
	fx.writeSuperblock()
	fx.writeGroupDesc()
	fx.writeInode(fxRootInode, 0x4000|0o755, 3, 0, []uint32{fxRootDataBlk})
	fx.writeInode(fxLostFoundInode, 0x4000|0o755, 2, 0, []uint32{fxLostFoundBlk})
	fx.writeDirBlock(fxRootDataBlk, []DirEntry{
		{Inode: fxRootInode, NameLen: 1, FileType: DirEntryDir, Name: "."},
		{Inode: fxRootInode, NameLen: 2, FileType: DirEntryDir, Name: ".."},
		{Inode: fxLostFoundInode, NameLen: 10, FileType: DirEntryDir, Name: "lost+found"},
	})
	fx.writeDirBlock(fxLostFoundBlk, []DirEntry{
		{Inode: fxLostFoundInode, NameLen: 1, FileType: DirEntryDir, Name: "."},
		{Inode: fxRootInode, NameLen: 2, FileType: DirEntryDir, Name: ".."},
	})
	return fx
}

func (fx *fixture) storage() backend.Storage {
	return &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			return copy(b, fx.buf[offset:]), nil
		},
		Writer: func(b []byte, offset int64) (int, error) {
			return copy(fx.buf[offset:], b), nil
		},
	}
}

func (fx *fixture) context(t *testing.T) *Context {
	t.Helper()
	c, err := NewContext(fx.storage(), partition.Partition{Index: 1}, false)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return c
}

func (fx *fixture) writeSuperblock() {
	sb := fx.buf[superblockOffset : superblockOffset+superblockSize]
	binary.LittleEndian.PutUint32(sb[offInodesCount:], fxNumInodes)
	binary.LittleEndian.PutUint32(sb[offBlocksCount:], fxNumBlocks)
	binary.LittleEndian.PutUint32(sb[offFirstDataBlock:], 1)
	binary.LittleEndian.PutUint32(sb[offLogBlockSize:], 0) // 1024 << 0
	binary.LittleEndian.PutUint32(sb[offBlocksPerGroup:], fxBlocksPerGroup)
	binary.LittleEndian.PutUint32(sb[offInodesPerGroup:], fxInodesPerGroup)
	binary.LittleEndian.PutUint32(sb[offRevLevel:], ext2RevOld)
	binary.LittleEndian.PutUint16(sb[sbMagicOffset:], sbMagic)
}

func (fx *fixture) writeGroupDesc() {
	gd := fx.buf[groupDescTableOffset : groupDescTableOffset+groupDescSize]
	binary.LittleEndian.PutUint32(gd[offBlockBitmap:], fxBlockBitmapBlk)
	binary.LittleEndian.PutUint32(gd[offInodeBitmap:], fxInodeBitmapBlk)
	binary.LittleEndian.PutUint32(gd[offInodeTable:], fxInodeTableBlk)
}

func (fx *fixture) writeInode(n uint32, mode, links uint16, size uint32, blocks []uint32) {
	idx := int(n-1) % fxInodesPerGroup
	off := fxInodeTableBlk*fxBlockSize + idx*fxInodeSize
	rec := fx.buf[off : off+fxInodeSize]
	binary.LittleEndian.PutUint16(rec[offMode:], mode)
	binary.LittleEndian.PutUint32(rec[offSize:], size)
	binary.LittleEndian.PutUint16(rec[offLinksCount:], links)
	for i, b := range blocks {
		if i >= blockPtrCount {
			break
		}
		binary.LittleEndian.PutUint32(rec[offBlock+i*4:], b)
	}
}

// writeDirBlock serializes entries back to back, 4-byte aligned, and grows
// the final entry's rec_len to reach the block boundary.
func (fx *fixture) writeDirBlock(blockNum uint32, entries []DirEntry) {
	data := make([]byte, fxBlockSize)
	off := 0
	for i := range entries {
		e := entries[i]
		e.Offset = off
		footprint := minDirentFootprint(int(e.NameLen))
		if i == len(entries)-1 {
			e.RecLen = uint16(fxBlockSize - off)
		} else {
			e.RecLen = uint16(footprint)
		}
		copy(data[off:], serializeDirEntry(e))
		off += int(e.RecLen)
	}
	copy(fx.buf[int(blockNum)*fxBlockSize:], data)
}

func (fx *fixture) setBlockBit(bit int, set bool) {
	off := fxBlockBitmapBlk*fxBlockSize + bit/8
	mask := byte(1) << uint(bit%8)
	if set {
		fx.buf[off] |= mask
	} else {
		fx.buf[off] &^= mask
	}
}

func (fx *fixture) blockBit(bit int) bool {
	off := fxBlockBitmapBlk*fxBlockSize + bit/8
	mask := byte(1) << uint(bit%8)
	return fx.buf[off]&mask == mask
}

func (fx *fixture) readDirBlock(blockNum uint32) []DirEntry {
	data := fx.buf[int(blockNum)*fxBlockSize : (int(blockNum)+1)*fxBlockSize]
	entries, err := parseDirEntries(data, fxBlockSize)
	if err != nil {
		panic(err)
	}
	return entries
}
