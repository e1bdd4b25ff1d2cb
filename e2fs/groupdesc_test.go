package e2fs

import "testing"

func TestLoadGroupDescriptors(t *testing.T) {
	fx := newFixture()
	table, err := LoadGroupDescriptors(fx.storage(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(table))
	}
	gd := table[0]
	if gd.BlockBitmap != fxBlockBitmapBlk || gd.InodeBitmap != fxInodeBitmapBlk || gd.InodeTable != fxInodeTableBlk {
		t.Errorf("got %+v", gd)
	}
}
