package e2fs

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestLoadSuperblock(t *testing.T) {
	fx := newFixture()
	sb, err := LoadSuperblock(fx.storage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sb.BlockSize != fxBlockSize {
		t.Errorf("BlockSize = %d, want %d", sb.BlockSize, fxBlockSize)
	}
	if sb.NumInodes != fxNumInodes {
		t.Errorf("NumInodes = %d, want %d", sb.NumInodes, fxNumInodes)
	}
	if sb.NumGroups != 1 {
		t.Errorf("NumGroups = %d, want 1", sb.NumGroups)
	}
	if sb.InodeSize != ext2GoodOldInodeSize {
		t.Errorf("InodeSize = %d, want %d (good old rev)", sb.InodeSize, ext2GoodOldInodeSize)
	}
}

func TestLoadSuperblockBadMagic(t *testing.T) {
	fx := newFixture()
	sb := fx.buf[superblockOffset : superblockOffset+superblockSize]
	binary.LittleEndian.PutUint16(sb[sbMagicOffset:], 0x1234)

	_, err := LoadSuperblock(fx.storage())
	if !errors.Is(err, ErrNotExt2) {
		t.Fatalf("got %v, want ErrNotExt2", err)
	}
}
