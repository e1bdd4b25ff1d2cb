package e2fs

// RootInode is the always-fixed root directory inode number.
const RootInode = 2

// Pass1 walks the full directory tree from root, patching "."/".." back
// pointers and tallying InodeRefs. It has no other side effects.
func (c *Context) Pass1() error {
	return c.WalkDirectory(RootInode, RootInode)
}
