package e2fs

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/fsimg/e2fsck/util"
	"github.com/sirupsen/logrus"
)

const lostFoundName = "lost+found"

// resolveLostFound finds /lost+found's inode number by name lookup from
// root; the core never hard-codes inode 11.
func (c *Context) resolveLostFound(rootInode uint32) (uint32, error) {
	return c.lookupChild(rootInode, lostFoundName)
}

// linkIntoLostFound appends an entry for orphan (with the given on-disk
// mode, to derive its directory-entry file_type) into /lost+found under its
// decimal inode number as a name. It shrinks the current last entry in
// lost+found's final block to its minimal 4-byte-aligned footprint and
// places the new entry in the freed space up to the block boundary.
func (c *Context) linkIntoLostFound(rootInode, orphan uint32, mode uint16) error {
	lfInode, err := c.resolveLostFound(rootInode)
	if err != nil {
		return fmt.Errorf("resolving lost+found: %w", err)
	}

	lf, err := c.ReadInode(lfInode)
	if err != nil {
		return err
	}
	blocks, err := c.dataBlocks(lf)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return fmt.Errorf("lost+found (inode %d) has no data blocks", lfInode)
	}
	lastBlock := blocks[len(blocks)-1]

	data, err := c.ReadBlock(lastBlock)
	if err != nil {
		return err
	}
	entries, err := parseDirEntries(data, c.Superblock.BlockSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("lost+found's last block has no entries")
	}
	last := entries[len(entries)-1]

	name := strconv.FormatUint(uint64(orphan), 10)
	needed := minDirentFootprint(len(name))
	shrunk := minDirentFootprint(int(last.NameLen))
	remaining := int(last.RecLen) - shrunk
	if remaining < needed {
		return fmt.Errorf("%w: lost+found has no room for inode %d", ErrNoSpaceInDirectory, orphan)
	}

	newEntry := DirEntry{
		Inode:    orphan,
		RecLen:   uint16(remaining),
		NameLen:  uint8(len(name)),
		FileType: imodeToFileType(mode),
		Name:     name,
		Offset:   last.Offset + shrunk,
	}

	patched := make([]byte, len(data))
	copy(patched, data)
	binary.LittleEndian.PutUint16(patched[last.Offset+direntOffRecLen:], uint16(shrunk))
	copy(patched[newEntry.Offset:], serializeDirEntry(newEntry))

	if c.Verbose {
		if changed, dump := util.DumpByteSlicesWithDiffs(data, patched, 16, true, true, false); changed {
			c.log.Debug("\n" + dump)
		}
	}

	if err := c.WriteBlock(lastBlock, patched); err != nil {
		return fmt.Errorf("writing lost+found entry for inode %d: %w", orphan, err)
	}

	c.log.WithFields(logrus.Fields{
		"inode": orphan,
		"name":  name,
	}).Info("adopted orphan into lost+found")
	return nil
}
