package e2fs

import (
	"fmt"

	"github.com/fsimg/e2fsck/backend"
	"github.com/fsimg/e2fsck/partition"
	"github.com/sirupsen/logrus"
)

// Context owns every piece of state one repair invocation needs: the
// partition-scoped storage, the superblock and group descriptor table, and
// the reference tally that passes 1-3 build and consume. It is created
// once per partition by FixPartition and discarded at the end of the run.
//
// This replaces the global variables (pt_info, sb, bg_desc_table,
// my_inode_map, my_block_map) the original C implementation threaded as
// process-wide state.
type Context struct {
	Storage    backend.Storage // scoped to [partition.Base(), partition.Base()+partition.Size())
	Partition  partition.Partition
	Superblock *Superblock
	GroupDescs []GroupDescriptor

	// InodeRefs is the authoritative reference count per inode number,
	// rebuilt by every directory tree walk.
	InodeRefs map[uint32]uint32

	Verbose bool
	log     *logrus.Entry
}

// NewContext loads the superblock and group descriptor table from storage
// (already scoped to the partition) and returns a ready-to-use Context.
func NewContext(storage backend.Storage, pt partition.Partition, verbose bool) (*Context, error) {
	sb, err := LoadSuperblock(storage)
	if err != nil {
		return nil, err
	}
	gds, err := LoadGroupDescriptors(storage, sb.NumGroups)
	if err != nil {
		return nil, err
	}
	return &Context{
		Storage:    storage,
		Partition:  pt,
		Superblock: sb,
		GroupDescs: gds,
		InodeRefs:  make(map[uint32]uint32),
		Verbose:    verbose,
		log: logrus.WithFields(logrus.Fields{
			"partition": pt.Index,
			"uuid":      sb.UUID,
		}),
	}, nil
}

func (c *Context) writable() (backend.WritableFile, error) {
	w, err := c.Storage.Writable()
	if err != nil {
		return nil, fmt.Errorf("image not open for write: %w", err)
	}
	return w, nil
}

// ResetRefs clears the reference tally so a fresh tree walk can rebuild it;
// used between pass 2 and the re-run of pass 1, since adopting orphans into
// lost+found changes reference counts.
func (c *Context) ResetRefs() {
	c.InodeRefs = make(map[uint32]uint32)
}

// ReadBlock reads one full filesystem block.
func (c *Context) ReadBlock(blockNum uint32) ([]byte, error) {
	buf := make([]byte, c.Superblock.BlockSize)
	off := int64(blockNum) * int64(c.Superblock.BlockSize)
	n, err := c.Storage.ReadAt(buf, off)
	if err != nil {
		return nil, fmt.Errorf("reading block %d: %w", blockNum, err)
	}
	if uint32(n) != c.Superblock.BlockSize {
		return nil, fmt.Errorf("read only %d bytes of block %d, wanted %d", n, blockNum, c.Superblock.BlockSize)
	}
	return buf, nil
}

// WriteBlock writes one full filesystem block.
func (c *Context) WriteBlock(blockNum uint32, data []byte) error {
	if uint32(len(data)) != c.Superblock.BlockSize {
		return fmt.Errorf("block %d: write data is %d bytes, want %d", blockNum, len(data), c.Superblock.BlockSize)
	}
	w, err := c.writable()
	if err != nil {
		return err
	}
	off := int64(blockNum) * int64(c.Superblock.BlockSize)
	n, err := w.WriteAt(data, off)
	if err != nil {
		return fmt.Errorf("writing block %d: %w", blockNum, err)
	}
	if uint32(n) != c.Superblock.BlockSize {
		return fmt.Errorf("wrote only %d bytes of block %d, wanted %d", n, blockNum, c.Superblock.BlockSize)
	}
	return nil
}
