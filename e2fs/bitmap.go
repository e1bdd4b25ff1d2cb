package e2fs

import (
	"fmt"

	"github.com/fsimg/e2fsck/util/bitmap"
)

// readBlockBitmap reads group g's on-disk block bitmap.
func (c *Context) readBlockBitmap(g uint32) (*bitmap.Bitmap, error) {
	data, err := c.ReadBlock(c.GroupDescs[g].BlockBitmap)
	if err != nil {
		return nil, fmt.Errorf("reading block bitmap for group %d: %w", g, err)
	}
	return bitmap.FromBytes(data), nil
}

// writeBlockBitmap writes group g's block bitmap back whole.
func (c *Context) writeBlockBitmap(g uint32, bm *bitmap.Bitmap) error {
	if err := c.WriteBlock(c.GroupDescs[g].BlockBitmap, bm.ToBytes()); err != nil {
		return fmt.Errorf("writing block bitmap for group %d: %w", g, err)
	}
	return nil
}
