package e2fs

import (
	"encoding/binary"
	"fmt"

	"github.com/fsimg/e2fsck/util"
	"github.com/sirupsen/logrus"
)

const (
	dotName    = "."
	dotdotName = ".."
)

// WalkDirectory is the directory walker of spec.md 4.5/4.6: it iterates the
// data blocks of the directory at inodeNum (direct blocks are sufficient for
// conformant images; indirect blocks are honored via WalkBlocks so large
// directories still work), chains entries by rec_len, patches "."/".." in
// the first block's first two slots, tallies InodeRefs, and recurses into
// child directories exactly once each.
func (c *Context) WalkDirectory(inodeNum, parentNum uint32) error {
	in, err := c.ReadInode(inodeNum)
	if err != nil {
		return err
	}
	if !in.IsDirectory() {
		return fmt.Errorf("%w: inode %d", ErrNotADirectory, inodeNum)
	}

	blocks, err := c.dataBlocks(in)
	if err != nil {
		return err
	}

	for bi, blockNum := range blocks {
		data, err := c.ReadBlock(blockNum)
		if err != nil {
			return err
		}
		entries, err := parseDirEntries(data, c.Superblock.BlockSize)
		if err != nil {
			return fmt.Errorf("directory inode %d block %d: %w", inodeNum, blockNum, err)
		}

		for ei, e := range entries {
			if bi == 0 && ei == 0 {
				if err := c.fixDotEntry(blockNum, data, e, inodeNum, dotName); err != nil {
					return err
				}
				e.Inode = inodeNum
			} else if bi == 0 && ei == 1 {
				if err := c.fixDotEntry(blockNum, data, e, parentNum, dotdotName); err != nil {
					return err
				}
				e.Inode = parentNum
			}

			if e.Inode < 1 || e.Inode > c.Superblock.NumInodes {
				continue
			}
			c.InodeRefs[e.Inode]++

			isDotSlot := bi == 0 && (ei == 0 || ei == 1)
			if e.FileType == DirEntryDir && !isDotSlot && c.InodeRefs[e.Inode] <= 1 {
				if err := c.WalkDirectory(e.Inode, inodeNum); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// fixDotEntry implements the "." / ".." patch policy: if the stored inode
// disagrees with what it should be, the inode field is overwritten on disk
// (the name bytes are left untouched even when the name itself is wrong,
// which is only reported).
func (c *Context) fixDotEntry(blockNum uint32, block []byte, e DirEntry, want uint32, wantName string) error {
	nameOK := e.Name == wantName
	if !nameOK {
		c.log.WithFields(logrus.Fields{
			"inode": e.Inode,
			"block": blockNum,
			"name":  e.Name,
		}).Warnf("directory entry name %q does not match expected %q", e.Name, wantName)
	}
	if e.Inode == want {
		return nil
	}
	c.log.WithFields(logrus.Fields{
		"block": blockNum,
		"was":   e.Inode,
		"want":  want,
	}).Warnf("patching %q back-pointer", wantName)

	oldHeader := block[e.Offset : e.Offset+direntHeaderSize]
	newHeader := make([]byte, direntHeaderSize)
	copy(newHeader, oldHeader)
	binary.LittleEndian.PutUint32(newHeader, want)

	if c.Verbose {
		if changed, dump := util.DumpByteSlicesWithDiffs(oldHeader, newHeader, 8, true, true, false); changed {
			c.log.Debug("\n" + dump)
		}
	}

	w, err := c.writable()
	if err != nil {
		return err
	}
	addr := int64(blockNum)*int64(c.Superblock.BlockSize) + int64(e.Offset) + direntOffInode
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], want)
	if _, err := w.WriteAt(buf[:], addr); err != nil {
		return fmt.Errorf("patching %q entry in block %d: %w", wantName, blockNum, err)
	}
	// keep the in-memory copy consistent for any caller still holding `block`
	copy(block[e.Offset:e.Offset+4], buf[:])
	return nil
}

// lookupChild resolves a name to an inode number among dirInode's entries,
// without recursing or tallying references — used to resolve "lost+found"
// and to read an orphan directory's own ".." pointer.
func (c *Context) lookupChild(dirInodeNum uint32, name string) (uint32, error) {
	in, err := c.ReadInode(dirInodeNum)
	if err != nil {
		return 0, err
	}
	blocks, err := c.dataBlocks(in)
	if err != nil {
		return 0, err
	}
	for _, blockNum := range blocks {
		data, err := c.ReadBlock(blockNum)
		if err != nil {
			return 0, err
		}
		entries, err := parseDirEntries(data, c.Superblock.BlockSize)
		if err != nil {
			return 0, err
		}
		for _, e := range entries {
			if e.Inode != 0 && e.Name == name {
				return e.Inode, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q under inode %d", ErrNotFound, name, dirInodeNum)
}

// parentOf returns the inode number stored in dirInodeNum's ".." entry,
// without requiring a full directory read.
func (c *Context) parentOf(dirInodeNum uint32) (uint32, error) {
	in, err := c.ReadInode(dirInodeNum)
	if err != nil {
		return 0, err
	}
	blocks, err := c.dataBlocks(in)
	if err != nil {
		return 0, err
	}
	if len(blocks) == 0 {
		return 0, fmt.Errorf("directory inode %d has no data blocks", dirInodeNum)
	}
	data, err := c.ReadBlock(blocks[0])
	if err != nil {
		return 0, err
	}
	entries, err := parseDirEntries(data, c.Superblock.BlockSize)
	if err != nil {
		return 0, err
	}
	if len(entries) < 2 {
		return 0, fmt.Errorf("directory inode %d is missing its \"..\" entry", dirInodeNum)
	}
	return entries[1].Inode, nil
}
