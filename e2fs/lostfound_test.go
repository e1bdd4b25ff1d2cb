package e2fs

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveLostFound(t *testing.T) {
	fx := newFixture()
	c := fx.context(t)

	got, err := c.resolveLostFound(fxRootInode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != fxLostFoundInode {
		t.Errorf("got %d, want %d", got, fxLostFoundInode)
	}
}

func TestLinkIntoLostFound(t *testing.T) {
	fx := newFixture()
	c := fx.context(t)

	if err := c.linkIntoLostFound(fxRootInode, 30, 0x8000|0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := fx.readDirBlock(fxLostFoundBlk)
	found := false
	for _, e := range entries {
		if e.Name == "30" && e.Inode == 30 {
			found = true
			if e.FileType != DirEntryRegular {
				t.Errorf("file_type = %d, want %d", e.FileType, DirEntryRegular)
			}
		}
	}
	if !found {
		t.Error("did not find adopted entry \"30\" in lost+found")
	}
}

func TestLinkIntoLostFoundNoSpace(t *testing.T) {
	fx := newFixture()
	// Pad the block with a filler entry so the final entry's post-shrink
	// slack (6 bytes) is too small for even a 2-digit name (needs 12).
	longName := strings.Repeat("x", 255)
	block := make([]byte, fxBlockSize)
	copy(block, serializeDirEntry(DirEntry{
		Inode: fxLostFoundInode, NameLen: 1, FileType: DirEntryDir, Name: ".", RecLen: 754,
	}))
	copy(block[754:], serializeDirEntry(DirEntry{
		Inode: fxRootInode, NameLen: 255, FileType: DirEntryDir, Name: longName, RecLen: 270,
	}))
	copy(fx.buf[fxLostFoundBlk*fxBlockSize:], block)

	c := fx.context(t)

	err := c.linkIntoLostFound(fxRootInode, 30, 0x8000|0o644)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !errors.Is(err, ErrNoSpaceInDirectory) {
		t.Errorf("got %v, want ErrNoSpaceInDirectory", err)
	}
}
