package e2fs

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Pass2 finds allocated-but-unreferenced inodes and links them into
// /lost+found. A directory orphan whose own stored parent is itself an
// orphan is skipped: it will be adopted transitively when its ancestor is
// adopted. This is the clear semantics spec.md 4.7/9 calls for in place of
// the original implementation's suspicious index-scanning check.
func (c *Context) Pass2() error {
	orphans := make([]uint32, 0)
	isOrphan := make(map[uint32]bool)

	for i := uint32(1); i <= c.Superblock.NumInodes; i++ {
		in, err := c.ReadInode(i)
		if err != nil {
			return err
		}
		if c.InodeRefs[i] == 0 && in.LinksCount > 0 {
			orphans = append(orphans, i)
			isOrphan[i] = true
		}
	}

	for _, i := range orphans {
		in, err := c.ReadInode(i)
		if err != nil {
			return err
		}

		if in.IsDirectory() {
			parent, err := c.parentOf(i)
			if err != nil {
				c.log.WithFields(logrus.Fields{"inode": i}).Warnf("could not determine parent of orphan directory: %v", err)
				continue
			}
			if isOrphan[parent] {
				continue
			}
		}

		if err := c.linkIntoLostFound(RootInode, i, in.Mode); err != nil {
			if !errors.Is(err, ErrNoSpaceInDirectory) {
				return err
			}
			c.log.WithFields(logrus.Fields{"inode": i}).Warnf("could not adopt orphan: %v", err)
			continue
		}
	}
	return nil
}
