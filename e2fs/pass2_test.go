package e2fs

import "testing"

// Pass2 consults only c.InodeRefs and on-disk inode records, so tests set
// the reference tally directly rather than running a full Pass1 walk first.

func TestPass2AdoptsOrphanFile(t *testing.T) {
	fx := newFixture()
	fx.writeInode(15, 0x8000|0o644, 1, 4096, nil)
	c := fx.context(t)
	c.InodeRefs[fxRootInode] = 1
	c.InodeRefs[fxLostFoundInode] = 1
	// inode 15 is allocated (LinksCount=1) but absent from InodeRefs: orphan.

	if err := c.Pass2(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, e := range fx.readDirBlock(fxLostFoundBlk) {
		if e.Name == "15" && e.Inode == 15 {
			found = true
		}
	}
	if !found {
		t.Error("orphan file inode 15 was not adopted into lost+found")
	}
}

func TestPass2SkipsOrphanDirectoryWithOrphanParent(t *testing.T) {
	fx := newFixture()
	// inode 16: orphan directory whose stored ".." (inode 20) is itself an
	// orphan; it must not be adopted in the same pass as its parent.
	fx.writeInode(16, 0x4000|0o755, 1, 0, []uint32{16})
	fx.writeDirBlock(16, []DirEntry{
		{Inode: 16, NameLen: 1, FileType: DirEntryDir, Name: "."},
		{Inode: 20, NameLen: 2, FileType: DirEntryDir, Name: ".."},
	})
	fx.writeInode(20, 0x8000|0o644, 1, 0, nil)

	c := fx.context(t)
	c.InodeRefs[fxRootInode] = 1
	c.InodeRefs[fxLostFoundInode] = 1

	if err := c.Pass2(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, e := range fx.readDirBlock(fxLostFoundBlk) {
		names = append(names, e.Name)
	}
	wantPresent := map[string]bool{"20": true}
	wantAbsent := map[string]bool{"16": true}
	for name := range wantPresent {
		present := false
		for _, n := range names {
			if n == name {
				present = true
			}
		}
		if !present {
			t.Errorf("expected %q to be adopted, names=%v", name, names)
		}
	}
	for name := range wantAbsent {
		for _, n := range names {
			if n == name {
				t.Errorf("expected %q not to be adopted yet, names=%v", name, names)
			}
		}
	}
}

func TestPass2IgnoresUnallocatedInodes(t *testing.T) {
	fx := newFixture()
	c := fx.context(t)
	c.InodeRefs[fxRootInode] = 1
	c.InodeRefs[fxLostFoundInode] = 1

	before := fx.readDirBlock(fxLostFoundBlk)
	if err := c.Pass2(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := fx.readDirBlock(fxLostFoundBlk)
	if len(before) != len(after) {
		t.Errorf("lost+found entry count changed from %d to %d with no orphans present", len(before), len(after))
	}
}
