package e2fs

import "github.com/sirupsen/logrus"

// Pass3 compares InodeRefs, rebuilt by the post-adoption re-walk, against
// each inode's stored link count, and writes back corrections. Inodes with
// both values zero are unallocated and are ignored.
func (c *Context) Pass3() error {
	for i := uint32(1); i <= c.Superblock.NumInodes; i++ {
		in, err := c.ReadInode(i)
		if err != nil {
			return err
		}
		refs := c.InodeRefs[i]
		if refs == 0 && in.LinksCount == 0 {
			continue
		}
		if uint16(refs) == in.LinksCount {
			continue
		}
		c.log.WithFields(logrus.Fields{
			"inode": i,
			"was":   in.LinksCount,
			"want":  refs,
		}).Warn("correcting stale link count")
		in.LinksCount = uint16(refs)
		if err := c.WriteInode(in); err != nil {
			return err
		}
	}
	return nil
}
