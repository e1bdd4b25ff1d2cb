package e2fs

import "testing"

func TestParseDirEntries(t *testing.T) {
	block := make([]byte, fxBlockSize)
	entries := []DirEntry{
		{Inode: 2, NameLen: 1, FileType: DirEntryDir, Name: "."},
		{Inode: 2, NameLen: 2, FileType: DirEntryDir, Name: ".."},
	}
	off := 0
	for i := range entries {
		e := entries[i]
		e.Offset = off
		if i == len(entries)-1 {
			e.RecLen = uint16(fxBlockSize - off)
		} else {
			e.RecLen = uint16(minDirentFootprint(int(e.NameLen)))
		}
		copy(block[off:], serializeDirEntry(e))
		off += int(e.RecLen)
	}

	parsed, err := parseDirEntries(block, fxBlockSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("got %d entries, want 2", len(parsed))
	}
	if parsed[0].Name != "." || parsed[1].Name != ".." {
		t.Errorf("got names %q, %q", parsed[0].Name, parsed[1].Name)
	}
	if parsed[1].Inode != 2 {
		t.Errorf("got inode %d, want 2", parsed[1].Inode)
	}
}

func TestParseDirEntriesZeroRecLen(t *testing.T) {
	block := make([]byte, fxBlockSize)
	// inode, rec_len=0, name_len, file_type all left zero: rec_len==0 is invalid.
	if _, err := parseDirEntries(block, fxBlockSize); err == nil {
		t.Error("expected error for zero rec_len")
	}
}

func TestParseDirEntriesOvershootsBlockSize(t *testing.T) {
	block := make([]byte, fxBlockSize)
	// A single entry whose rec_len overshoots the block boundary must be
	// rejected rather than silently accepted as the last entry.
	e := DirEntry{Inode: 2, NameLen: 1, FileType: DirEntryDir, Name: ".", RecLen: uint16(fxBlockSize + 8)}
	copy(block, serializeDirEntry(e))

	if _, err := parseDirEntries(block, fxBlockSize); err == nil {
		t.Error("expected error when rec_len chain overshoots block_size")
	}
}

func TestAlign4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8}
	for in, want := range cases {
		if got := align4(in); got != want {
			t.Errorf("align4(%d) = %d, want %d", in, got, want)
		}
	}
}
